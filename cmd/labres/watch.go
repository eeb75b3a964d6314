package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/lab-resource-manager/internal/application"
)

func newWatchCmd(v *viper.Viper) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the calendars and notify about reservation changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := wireApp(ctx, v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			notifier, err := a.changeNotifier(ctx)
			if err != nil {
				return err
			}

			if once {
				result, err := notifier.PollOnce(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "tracking %d reservations: %d created, %d updated, %d deleted\n",
					notifier.SnapshotSize(), result.Created, result.Updated, result.Deleted)
				return err
			}

			application.NewWatcher(notifier, a.logger).Start(ctx, a.cfg.PollingInterval)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "take the snapshot, run a single poll cycle and exit")
	return cmd
}
