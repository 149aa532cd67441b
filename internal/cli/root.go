package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mindspero/mindspero/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configDirName = ".mindspero"

var (
	cfgFile      string
	outputFormat string
	noColor      bool
	serverURL    string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "mindspero",
	Short: "MindSpero CLI - PDF summaries and audio explanations",
	Long: `MindSpero CLI uploads lecture PDFs, reads their summaries, requests
audio explanations and manages your subscription. Admin accounts can also
read the dashboard statistics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip client init for config and auth login commands
		if cmd.Name() == "init" || cmd.Name() == "set" || cmd.Name() == "get" ||
			(cmd.Parent() != nil && cmd.Parent().Name() == "config") {
			return nil
		}
		if cmd.Name() == "login" || cmd.Name() == "register" {
			return initClient()
		}
		if cmd.Name() == "plans" {
			if err := initClient(); err != nil {
				return err
			}
			// Signed-in callers see their current plan flagged.
			if token := viper.GetString("auth.token"); token != "" {
				apiClient.SetToken(token)
			}
			return nil
		}
		return initAuthenticatedClient()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.mindspero/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))

	// Register all subcommands
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newSubscriptionCmd())
	rootCmd.AddCommand(newAdminCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := filepath.Join(home, configDirName)
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MINDSPERO")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server_url", "http://localhost:8080")
	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString("server_url")
	if serverURL != "" {
		url = serverURL
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
	})
	return nil
}

func initAuthenticatedClient() error {
	if err := initClient(); err != nil {
		return err
	}

	token := viper.GetString("auth.token")
	if token == "" {
		return fmt.Errorf("not authenticated. Run 'mindspero auth login' first")
	}
	apiClient.SetToken(token)

	if !accessTokenExpired(time.Now()) {
		return nil
	}
	refresh := viper.GetString("auth.refresh_token")
	if refresh == "" {
		return fmt.Errorf("session expired. Run 'mindspero auth login' again")
	}
	resp, err := apiClient.RefreshToken(context.Background(), refresh)
	if err != nil {
		return fmt.Errorf("session expired and refresh failed: %w", err)
	}
	return saveCredentials(resp)
}

// accessTokenExpired reports whether the stored access token is at or within
// a minute of its expiry. Unknown expiry counts as valid.
func accessTokenExpired(now time.Time) bool {
	raw := viper.GetString("auth.expires_at")
	if raw == "" {
		return false
	}
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false
	}
	return !now.Add(time.Minute).Before(expiresAt)
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
