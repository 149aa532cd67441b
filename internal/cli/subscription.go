package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/cobra"
)

func newSubscriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Subscription and trial commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := apiClient.Subscription().Get(context.Background())
			if err != nil {
				return err
			}
			return printSubscription(sub)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "trial",
		Short: "Start your free trial",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := apiClient.Subscription().StartTrial(context.Background())
			if err != nil {
				return err
			}
			if getOutputFormat() == "table" {
				fmt.Printf("Trial started: %s remaining\n\n", formatDays(sub.DaysRemaining))
			}
			return printSubscription(sub)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Cancel auto-renewal; access continues until the period ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := apiClient.Subscription().Cancel(context.Background())
			if err != nil {
				return err
			}
			return printSubscription(sub)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "plans",
		Short: "List available plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			plans, err := apiClient.Subscription().Plans(context.Background())
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(plans)
			}

			fmt.Printf("Free trial: %d days\n\n", plans.TrialDays)
			t := NewTable("PLAN", "PRICE", "PERIOD", "BONUS", "")
			for _, p := range plans.Plans {
				current := ""
				if p.IsCurrent {
					current = "current"
				}
				t.AddRow(
					p.Name,
					formatMoney(p.AmountMinor, p.Currency),
					fmt.Sprintf("%d days", p.PeriodDays),
					fmt.Sprintf("+%d days", p.BonusDays),
					current,
				)
			}
			t.Render()
			return nil
		},
	})

	return cmd
}

func printSubscription(sub *client.Subscription) error {
	if getOutputFormat() != "table" {
		return printOutput(sub)
	}

	fmt.Printf("Tier:       %s\n", formatTier(sub.Tier, sub.CurrentTier))
	if sub.Plan != "" {
		fmt.Printf("Plan:       %s\n", sub.Plan)
	}
	fmt.Printf("Remaining:  %s\n", formatDays(sub.DaysRemaining))
	if sub.TrialEndsAt != nil {
		fmt.Printf("Trial ends: %s\n", sub.TrialEndsAt.Local().Format("2006-01-02"))
	}
	if sub.RenewalAt != nil {
		label := "Renews:    "
		if sub.CancelledAt != nil {
			label = "Ends:      "
		}
		fmt.Printf("%s %s\n", label, sub.RenewalAt.Local().Format("2006-01-02"))
	}
	if sub.BonusDaysCredited > 0 {
		fmt.Printf("Bonus:      %d days credited\n", sub.BonusDaysCredited)
	}
	if sub.TrialAvailable {
		fmt.Println("Trial:      available")
	}
	fmt.Printf("Features:   %s\n", strings.Join(sub.Features, ", "))
	return nil
}
