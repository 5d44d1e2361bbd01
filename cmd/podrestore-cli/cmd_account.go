package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account <username>",
		Short: "Show an account with its restored social graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := apiClient.Accounts.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get account: %w", err)
			}

			if flagFmt != "table" {
				output(summary, summary.Account.ID)
				return nil
			}

			groups := make([]string, 0, len(summary.ContactGroups))
			for _, g := range summary.ContactGroups {
				groups = append(groups, g.Name)
			}

			acct := summary.Account
			formatTable([]string{"FIELD", "VALUE"}, [][]string{
				{"username", acct.Username},
				{"email", acct.Email},
				{"name", acct.Profile.FullName},
				{"language", acct.Settings.Language},
				{"contact groups", strings.Join(groups, ", ")},
				{"contacts", fmt.Sprint(len(summary.Contacts))},
				{"followed tags", strings.Join(summary.FollowedTags, ", ")},
				{"participations", fmt.Sprint(len(summary.Participations))},
			})
			return nil
		},
	}
}
