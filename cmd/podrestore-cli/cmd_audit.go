package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/podrestore/client"
)

func newAuditCmd() *cobra.Command {
	var (
		opts  client.AuditQueryOptions
		since string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List import runs from the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if since != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("--since must be a duration such as 24h: %w", err)
				}
				t := time.Now().Add(-d)
				opts.Since = &t
			}

			entries, hasMore, err := apiClient.Audit.Query(cmd.Context(), &opts)
			if err != nil {
				return fmt.Errorf("query audit: %w", err)
			}

			if flagFmt != "table" {
				output(map[string]any{"data": entries, "has_more": hasMore}, strconv.Itoa(len(entries)))
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.CreatedAt.Format(time.RFC3339), e.Action, e.Username, e.Actor, e.RunID})
			}
			formatTable([]string{"TIME", "ACTION", "ACCOUNT", "ACTOR", "RUN"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "Filter by account")
	cmd.Flags().StringVar(&opts.Action, "action", "", "Filter by action (e.g. archive.import)")
	cmd.Flags().StringVar(&since, "since", "", "Only entries newer than this duration")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Maximum entries")

	cmd.AddCommand(newAuditPurgeCmd())

	return cmd
}

func newAuditPurgeCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			deleted, err := apiClient.Audit.Purge(cmd.Context(), days)
			if err != nil {
				return fmt.Errorf("purge audit: %w", err)
			}

			output(map[string]any{"deleted": deleted, "retention_days": days}, fmt.Sprintf("purged %d entries", deleted))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Keep entries newer than this many days")

	return cmd
}
