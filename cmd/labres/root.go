package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// newRootCmd builds the command tree. A nil v reads a fresh viper instance.
func newRootCmd(v *viper.Viper) *cobra.Command {
	if v == nil {
		v = viper.New()
	}

	rootCmd := &cobra.Command{
		Use:           "labres",
		Short:         "Lab GPU and room reservations on shared calendars",
		Long:          "labres manages GPU and meeting room reservations kept on shared calendars, serves a JSON API for them and announces every change to the configured notification destinations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(v),
		newWatchCmd(v),
		newGrantCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(version + "\n"))
			return err
		},
	}
}
