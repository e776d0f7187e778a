package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"sitelog/internal/store"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var siteID int64
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show submitted log history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				path := fmt.Sprintf("/api/logs?limit=%d", limit)
				if siteID > 0 {
					path += fmt.Sprintf("&site_id=%d", siteID)
				}
				var payload struct {
					Logs []store.LogMetadata `json:"logs"`
				}
				if err := client.get(cmd.Context(), path, &payload); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(payload.Logs) == 0 {
					fmt.Fprintln(out, "No logs recorded yet.")
					return nil
				}

				rows := make([][]string, 0, len(payload.Logs))
				for _, entry := range payload.Logs {
					rows = append(rows, []string{
						entry.CapturedAt.Local().Format("2006-01-02 15:04"),
						entry.SiteName,
						entry.JobType,
						truncate(entry.Summary, 60),
						strings.Join(entry.Destinations, ", "),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Captured", "Site", "Job", "Summary", "Synced To"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&siteID, "site", 0, "Only logs for this site ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")
	cmd.AddCommand(newLogsClearCommand(ctx))
	return cmd
}

func newLogsClearCommand(ctx *commandContext) *cobra.Command {
	var siteID int64

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete log history metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				path := "/api/logs"
				if siteID > 0 {
					path += fmt.Sprintf("?site_id=%d", siteID)
				}
				var payload struct {
					Removed int64 `json:"removed"`
				}
				if err := client.do(cmd.Context(), http.MethodDelete, path, nil, &payload); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d log record(s)\n", payload.Removed)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&siteID, "site", 0, "Only clear logs for this site ID")
	return cmd
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
