package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthRegisterCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthWhoamiCmd())
	cmd.AddCommand(newAuthProfileCmd())
	cmd.AddCommand(newAuthDeleteAccountCmd())

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = promptInput("Email: ")
			}
			if password == "" {
				password = promptPassword("Password: ")
			}

			resp, err := apiClient.Login(context.Background(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := saveCredentials(resp); err != nil {
				return err
			}

			name := resp.User.Email
			if resp.User.FullName != nil && *resp.User.FullName != "" {
				name = *resp.User.FullName
			}
			fmt.Printf("Logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")

	return cmd
}

func newAuthRegisterCmd() *cobra.Command {
	var email, password, fullName string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				email = promptInput("Email: ")
			}
			if fullName == "" {
				fullName = promptInput("Full name (optional): ")
			}
			if password == "" {
				password = promptPassword("Password: ")
				confirm := promptPassword("Confirm password: ")
				if password != confirm {
					return fmt.Errorf("passwords do not match")
				}
			}

			resp, err := apiClient.Register(context.Background(), client.RegisterRequest{
				Email:    email,
				Password: password,
				FullName: fullName,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			if err := saveCredentials(resp); err != nil {
				return err
			}

			fmt.Printf("Account created. Logged in as %s\n", resp.User.Email)
			fmt.Println("Start your free trial with: mindspero subscription trial")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&fullName, "name", "", "full name")

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Server side only clears the refresh cookie; local state is what matters.
			_ = apiClient.Logout(context.Background())

			if err := clearCredentials(); err != nil {
				return err
			}

			fmt.Println("Logged out successfully")
			return nil
		},
	}
}

func newAuthWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show current user and subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := apiClient.Me(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get user info: %w", err)
			}

			if getOutputFormat() != "table" {
				return printOutput(me)
			}

			fmt.Printf("Email:    %s\n", me.User.Email)
			if me.User.FullName != nil && *me.User.FullName != "" {
				fmt.Printf("Name:     %s\n", *me.User.FullName)
			}
			fmt.Printf("Role:     %s\n", me.User.Role)
			fmt.Printf("ID:       %s\n", me.User.ID)
			if sub := me.Subscription; sub != nil {
				fmt.Printf("Tier:     %s\n", formatTier(sub.Tier, sub.CurrentTier))
				fmt.Printf("Features: %s\n", strings.Join(sub.Features, ", "))
			}
			return nil
		},
	}
}

func newAuthProfileCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change your display name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("name") {
				name = promptInput("Full name (empty to clear): ")
			}
			u, err := apiClient.UpdateProfile(context.Background(), name)
			if err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			if u.FullName == nil {
				fmt.Println("Name cleared")
				return nil
			}
			fmt.Printf("Name set to %s\n", *u.FullName)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")

	return cmd
}

func newAuthDeleteAccountCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete your account, documents and audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				fmt.Println("This removes your subscription, payment history, documents and audio. There is no undo.")
				email := viper.GetString("auth.email")
				if got := promptInput(fmt.Sprintf("Type %s to confirm: ", email)); email == "" || got != email {
					fmt.Println("Cancelled")
					return nil
				}
			}
			password := promptPassword("Password: ")

			if err := apiClient.DeleteAccount(context.Background(), password); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}
			if err := clearCredentials(); err != nil {
				return err
			}
			fmt.Println("Account deleted")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the email confirmation")

	return cmd
}

func clearCredentials() error {
	viper.Set("auth.token", "")
	viper.Set("auth.refresh_token", "")
	viper.Set("auth.expires_at", "")
	viper.Set("auth.email", "")
	if err := writeConfig(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

func saveCredentials(resp *client.AuthResponse) error {
	viper.Set("auth.token", resp.AccessToken)
	viper.Set("auth.refresh_token", resp.RefreshToken)
	viper.Set("auth.expires_at", resp.ExpiresAt.UTC().Format(time.RFC3339))
	if resp.User != nil {
		viper.Set("auth.email", resp.User.Email)
	}
	if err := writeConfig(); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func promptPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(password)
}
