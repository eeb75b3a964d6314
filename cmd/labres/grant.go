package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/lab-resource-manager/internal/application"
	"github.com/example/lab-resource-manager/internal/domain"
)

func newGrantCmd(v *viper.Viper) *cobra.Command {
	var (
		email     string
		slackUser string
		linkOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Link a Slack user to an email and share every resource calendar with it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			address, err := domain.NewEmailAddress(email)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := wireApp(ctx, v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			svc := application.NewAccessService(a.identities, a.access, time.Now, a.logger)
			userID := strings.TrimSpace(slackUser)
			if linkOnly {
				if err := svc.LinkIdentity(ctx, domain.ExternalSystemSlack, userID, address); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "linked %s to slack user %s\n", address, userID)
				return err
			}

			if err := svc.GrantUserResourceAccess(ctx, domain.ExternalSystemSlack, userID, address); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "granted %s access to %d calendars\n", address, len(a.access.CalendarIDs()))
			return err
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address to share the calendars with")
	cmd.Flags().StringVar(&slackUser, "slack-user", "", "Slack user id, for example U01ABCDEF")
	cmd.Flags().BoolVar(&linkOnly, "link-only", false, "record the link without sharing calendars")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("slack-user")
	return cmd
}
