package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin dashboard commands",
	}

	cmd.AddCommand(newAdminStatsCmd())
	cmd.AddCommand(newAdminUsersCmd())
	cmd.AddCommand(newAdminRevenueCmd())
	cmd.AddCommand(newAdminPaymentsCmd())
	cmd.AddCommand(newAdminGrowthCmd())
	cmd.AddCommand(newAdminDeleteUserCmd())
	cmd.AddCommand(newAdminActivateCmd())
	cmd.AddCommand(newAdminDeactivateCmd())
	cmd.AddCommand(newAdminBonusCmd())

	return cmd
}

func newAdminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show user and subscription counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := apiClient.Admin().UserStats(context.Background())
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(stats)
			}

			fmt.Printf("Users:       %d\n", stats.TotalUsers)
			fmt.Printf("Subscribed:  %d\n", stats.SubscribedUsers)
			fmt.Printf("Conversion:  %.1f%%\n", stats.ConversionRate*100)
			fmt.Printf("Documents:   %d\n\n", stats.TotalDocuments)

			tiers := make([]string, 0, len(stats.ByTier))
			for tier := range stats.ByTier {
				tiers = append(tiers, tier)
			}
			sort.Strings(tiers)

			t := NewTable("TIER", "USERS")
			for _, tier := range tiers {
				t.AddRow(tier, fmt.Sprintf("%d", stats.ByTier[tier]))
			}
			t.Render()
			return nil
		},
	}
}

func newAdminUsersCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users by subscription status",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := apiClient.Admin().Users(context.Background(), status)
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(users)
			}

			t := NewTable("ID", "EMAIL", "TIER", "REMAINING", "DOCS", "JOINED")
			for _, u := range users.Users {
				t.AddRow(
					u.ID,
					truncate(u.Email, 32),
					formatTier(u.StoredTier, u.Tier),
					formatDays(u.DaysRemaining),
					fmt.Sprintf("%d", u.DocumentCount),
					u.JoinedAt.Local().Format("2006-01-02"),
				)
			}
			t.Render()
			fmt.Printf("\n%d users (%s)\n", users.Total, users.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "filter: all, subscribed, trial, free, active, expired")

	return cmd
}

func newAdminRevenueCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Show revenue totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if month != "" {
				rev, err := apiClient.Admin().MonthlyRevenue(ctx, month)
				if err != nil {
					return err
				}
				if getOutputFormat() != "table" {
					return printOutput(rev)
				}
				fmt.Printf("%s: %s from %d payments\n", rev.Month, formatMoney(rev.AmountMinor, ""), rev.PaymentCount)
				return nil
			}

			report, err := apiClient.Admin().Revenue(ctx)
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(report)
			}

			t := NewTable("MONTH", "AMOUNT", "PAYMENTS")
			for _, m := range report.ByMonth {
				t.AddRow(m.Month, formatMoney(m.AmountMinor, ""), fmt.Sprintf("%d", m.PaymentCount))
			}
			t.Render()
			fmt.Printf("\nTotal: %s from %d payments\n", formatMoney(report.TotalMinor, ""), report.PaymentCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "single month as YYYY-MM")

	return cmd
}

func newAdminPaymentsCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List recorded payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var payments []client.Payment
			if userID != "" {
				list, err := apiClient.Admin().UserPayments(ctx, userID)
				if err != nil {
					return err
				}
				payments = list
			} else {
				page, err := apiClient.Admin().Payments(ctx)
				if err != nil {
					return err
				}
				payments = page.Data
			}
			if getOutputFormat() != "table" {
				return printOutput(payments)
			}

			t := NewTable("REFERENCE", "USER", "PLAN", "AMOUNT", "PAID")
			for _, p := range payments {
				t.AddRow(
					truncate(p.Reference, 24),
					p.UserID,
					p.Plan,
					formatMoney(p.AmountMinor, p.Currency),
					p.PaidAt.Local().Format("2006-01-02 15:04"),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "only this user's payments")

	return cmd
}

func newAdminGrowthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "growth",
		Short: "Show subscribed users by signup month",
		RunE: func(cmd *cobra.Command, args []string) error {
			growth, err := apiClient.Admin().Growth(context.Background())
			if err != nil {
				return err
			}
			if getOutputFormat() != "table" {
				return printOutput(growth)
			}

			fmt.Printf("Users:       %d\n", growth.TotalUsers)
			fmt.Printf("Subscribed:  %d (%d trial, %d paid)\n", growth.SubscribedUsers, growth.TrialUsers, growth.ActiveUsers)
			fmt.Printf("Rate:        %.1f%%\n\n", growth.SubscribedRate*100)

			t := NewTable("MONTH", "SIGNUPS", "SUBSCRIBED")
			for _, m := range growth.ByMonth {
				t.AddRow(m.Month, fmt.Sprintf("%d", m.Signups), fmt.Sprintf("%d", m.Subscribed))
			}
			t.Render()
			return nil
		},
	}
}

func newAdminDeleteUserCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-user <user-id>",
		Short: "Delete a user with their documents and payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				confirm := promptInput(fmt.Sprintf("Delete user %s and everything they own? [y/N]: ", args[0]))
				if confirm != "y" && confirm != "Y" {
					fmt.Println("Cancelled")
					return nil
				}
			}
			if err := apiClient.Admin().DeleteUser(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("User %s deleted\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}

func newAdminActivateCmd() *cobra.Command {
	var plan string

	cmd := &cobra.Command{
		Use:   "activate <user-id>",
		Short: "Grant one plan period without a charge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := apiClient.Admin().ActivateSubscription(context.Background(), args[0], plan)
			if err != nil {
				return err
			}
			return printSubscriptionStatus(args[0], st)
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "monthly", "plan to grant: monthly or yearly")

	return cmd
}

func newAdminDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <user-id>",
		Short: "Cancel a paid subscription; access runs to the renewal date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := apiClient.Admin().DeactivateSubscription(context.Background(), args[0])
			if err != nil {
				return err
			}
			return printSubscriptionStatus(args[0], st)
		},
	}
}

func newAdminBonusCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "bonus <user-id>",
		Short: "Credit bonus days to a trial or paid subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := apiClient.Admin().GrantBonus(context.Background(), args[0], days)
			if err != nil {
				return err
			}
			return printSubscriptionStatus(args[0], st)
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "days to credit")

	return cmd
}

func printSubscriptionStatus(userID string, st *client.SubscriptionStatus) error {
	if getOutputFormat() != "table" {
		return printOutput(st)
	}
	stored := st.CurrentTier
	if st.Subscription != nil {
		stored = st.Subscription.Tier
	}
	fmt.Printf("User:       %s\n", userID)
	fmt.Printf("Tier:       %s\n", formatTier(stored, st.CurrentTier))
	fmt.Printf("Remaining:  %s\n", formatDays(st.DaysRemaining))
	return nil
}
