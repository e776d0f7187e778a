package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type statusView struct {
	StoreHealthy bool `json:"store_healthy"`
	Sessions     int  `json:"sessions"`
	Destinations []struct {
		Kind      string `json:"kind"`
		Connected bool   `json:"connected"`
	} `json:"destinations"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and destination connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				var view statusView
				if err := client.get(cmd.Context(), "/api/status", &view); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				fmt.Fprintln(out, statusLine("daemon", true, client.baseURL, colorize))
				fmt.Fprintln(out, statusLine("database", view.StoreHealthy, "", colorize))
				fmt.Fprintln(out, statusLine("sessions", true, fmt.Sprintf("%d live", view.Sessions), colorize))
				for _, dest := range view.Destinations {
					detail := "connected"
					if !dest.Connected {
						detail = "not connected"
					}
					fmt.Fprintln(out, statusLine(dest.Kind, dest.Connected, detail, colorize))
				}
				return nil
			})
		},
	}
}
