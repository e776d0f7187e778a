package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"sitelog/internal/store"
)

func newSitesCommand(ctx *commandContext) *cobra.Command {
	sitesCmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage job sites",
	}

	sitesCmd.AddCommand(newSitesListCommand(ctx))
	sitesCmd.AddCommand(newSitesAddCommand(ctx))
	sitesCmd.AddCommand(newSitesArchiveCommand(ctx, true))
	sitesCmd.AddCommand(newSitesArchiveCommand(ctx, false))

	return sitesCmd
}

func newSitesListCommand(ctx *commandContext) *cobra.Command {
	var includeArchived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				path := "/api/sites"
				if includeArchived {
					path += "?archived=true"
				}
				var payload struct {
					Sites []store.SiteRecord `json:"sites"`
				}
				if err := client.get(cmd.Context(), path, &payload); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(payload.Sites) == 0 {
					fmt.Fprintln(out, "No sites yet. Add one with `sitelog sites add`.")
					return nil
				}

				rows := make([][]string, 0, len(payload.Sites))
				for _, site := range payload.Sites {
					rows = append(rows, []string{
						strconv.FormatInt(site.ID, 10),
						site.Name,
						site.Address,
						site.PermitID,
						yesNo(site.Archived),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Address", "Permit", "Archived"}, rows, 1))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&includeArchived, "archived", false, "Include archived sites")
	return cmd
}

func newSitesAddCommand(ctx *commandContext) *cobra.Command {
	var name, address, permit, portal string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a job site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				body := map[string]string{
					"name":       name,
					"address":    address,
					"permit_id":  permit,
					"portal_url": portal,
				}
				var record store.SiteRecord
				if err := client.post(cmd.Context(), "/api/sites", body, &record); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added site %d: %s\n", record.ID, record.Label())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Site name")
	cmd.Flags().StringVar(&address, "address", "", "Street address")
	cmd.Flags().StringVar(&permit, "permit", "", "Permit identifier")
	cmd.Flags().StringVar(&portal, "portal", "", "Client portal URL")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("address")
	return cmd
}

func newSitesArchiveCommand(ctx *commandContext, archive bool) *cobra.Command {
	use, short, action := "archive <id>", "Archive a job site", "archive"
	if !archive {
		use, short, action = "unarchive <id>", "Restore an archived job site", "unarchive"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid site id %q", args[0])
			}
			return ctx.withClient(func(client *apiClient) error {
				path := fmt.Sprintf("/api/sites/%d/%s", id, action)
				if err := client.post(cmd.Context(), path, nil, nil); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Site %d %sd\n", id, action)
				return nil
			})
		},
	}
}
