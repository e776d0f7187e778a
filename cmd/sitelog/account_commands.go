package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type accountView struct {
	Tier           string     `json:"tier"`
	TrialExpiresAt *time.Time `json:"trial_expires_at"`
	BetaTester     bool       `json:"beta_tester"`
	HasAccess      bool       `json:"has_access"`
	TrialDaysLeft  *int       `json:"trial_days_left"`
}

func newAccountCommand(ctx *commandContext) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Show or update the cached account state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				var view accountView
				if err := client.get(cmd.Context(), "/api/account", &view); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Tier:        %s\n", view.Tier)
				fmt.Fprintf(out, "Beta tester: %s\n", yesNo(view.BetaTester))
				fmt.Fprintf(out, "Access:      %s\n", yesNo(view.HasAccess))
				switch {
				case view.TrialDaysLeft != nil:
					fmt.Fprintf(out, "Trial:       %d day(s) remaining\n", *view.TrialDaysLeft)
				case view.TrialExpiresAt != nil:
					fmt.Fprintf(out, "Trial:       expired %s\n", view.TrialExpiresAt.Local().Format("2006-01-02"))
				}
				return nil
			})
		},
	}

	accountCmd.AddCommand(newAccountSetCommand(ctx))
	accountCmd.AddCommand(newAccountDowngradeCommand(ctx))
	return accountCmd
}

func newAccountDowngradeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "downgrade",
		Short: "Downgrade the account to FREE",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				if err := client.post(cmd.Context(), "/api/account/downgrade", nil, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Account downgraded to FREE")
				return nil
			})
		},
	}
}

func newAccountSetCommand(ctx *commandContext) *cobra.Command {
	var tier string
	var trialDays int
	var beta bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update the cached account state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				body := map[string]any{
					"tier":        tier,
					"beta_tester": beta,
				}
				if trialDays > 0 {
					expires := time.Now().Add(time.Duration(trialDays) * 24 * time.Hour).UTC()
					body["trial_expires_at"] = expires
				}
				if err := client.put(cmd.Context(), "/api/account", body, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Account updated")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "FREE", "Account tier (FREE or PRO)")
	cmd.Flags().IntVar(&trialDays, "trial-days", 0, "Days until the trial expires")
	cmd.Flags().BoolVar(&beta, "beta", false, "Mark the account as a beta tester")
	return cmd
}
