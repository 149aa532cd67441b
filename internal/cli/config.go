package cli

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultServerURL = "http://localhost:8080"

// settableKeys are the keys `config set` accepts, with their validators.
var settableKeys = map[string]func(string) error{
	"server_url": validateServerURL,
	"output":     validateOutputFormat,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive first-time setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			server := ask(reader, "MindSpero server URL", defaultServerURL)
			if err := validateServerURL(server); err != nil {
				return err
			}
			format := ask(reader, "Default output format (table/json/yaml)", "table")
			if err := validateOutputFormat(format); err != nil {
				return err
			}

			viper.Set("server_url", server)
			viper.Set("output", format)
			if err := writeConfig(); err != nil {
				return err
			}

			path, _ := configPath()
			fmt.Printf("Configuration saved to %s\n", path)
			fmt.Println("Next: mindspero auth register, or mindspero auth login")
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set server_url or output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := strings.ToLower(args[0]), args[1]
			validate, ok := settableKeys[key]
			if !ok {
				return fmt.Errorf("unknown key %q (settable: %s)", key, strings.Join(settableKeyNames(), ", "))
			}
			if err := validate(value); err != nil {
				return err
			}

			viper.Set(key, value)
			if err := writeConfig(); err != nil {
				return err
			}
			fmt.Printf("Set %s = %s\n", key, value)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToLower(args[0])
			val := viper.GetString(key)
			switch {
			case val == "":
				fmt.Printf("%s: (not set)\n", key)
			case strings.HasPrefix(key, "auth.") && key != "auth.email":
				fmt.Printf("%s: %s\n", key, maskSecret(val))
			default:
				fmt.Printf("%s: %s\n", key, val)
			}
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("server_url: %s\n", viper.GetString("server_url"))
			fmt.Printf("output: %s\n", viper.GetString("output"))
			if email := viper.GetString("auth.email"); email != "" {
				fmt.Printf("auth.email: %s\n", email)
			}
			if token := viper.GetString("auth.token"); token != "" {
				fmt.Printf("auth.token: %s\n", maskSecret(token))
			}
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Println(used)
				return nil
			}
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, configDirName, "config.yaml"), nil
}

func writeConfig() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return viper.WriteConfigAs(path)
}

func ask(reader *bufio.Reader, prompt, def string) string {
	fmt.Printf("%s [%s]: ", prompt, def)
	answer, _ := reader.ReadString('\n')
	if answer = strings.TrimSpace(answer); answer == "" {
		return def
	}
	return answer
}

func validateServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: want http(s)://host[:port]", raw)
	}
	return nil
}

func validateOutputFormat(format string) error {
	switch format {
	case "table", "json", "yaml":
		return nil
	}
	return fmt.Errorf("invalid output format %q: want table, json or yaml", format)
}

func settableKeyNames() []string {
	names := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// maskSecret keeps the last four characters
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
