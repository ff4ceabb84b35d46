// Package cmd implements the car-deal-tracker commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/car-deal-tracker/internal/api/client"
	"github.com/donaldgifford/car-deal-tracker/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "car-deal-tracker",
	Short: "Find underpriced cars on the marketplace",
	Long: "car-deal-tracker samples a marketplace for used cars, judges each new\n" +
		"listing against the current market and alerts on the good deals.\n\n" +
		"Run `serve` for the scheduler and admin API, `run` for a one-shot\n" +
		"pipeline run, or use the remote commands against a running server.",
	SilenceUsage: true,
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "service config file (YAML); built-in defaults when empty")
	pf.String("server", "http://localhost:8080", "API server URL for remote commands")
	pf.String("output", "table", "output format (table, json)")

	for _, name := range []string{"config", "server", "output"} {
		cobra.CheckErr(viper.BindPFlag(name, pf.Lookup(name)))
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(testRunCmd())
	rootCmd.AddCommand(contextCmd())
	rootCmd.AddCommand(triggerCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(dedupCmd())
	rootCmd.AddCommand(secretsCmd())
	rootCmd.AddCommand(openapiCmd())
	rootCmd.AddCommand(versionCommand())
}

// initConfig reads client defaults (server, output) from
// $HOME/.car-deal-tracker.yaml and CDT_* environment variables.
func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigType("yaml")
	viper.SetConfigName(".car-deal-tracker")

	viper.SetEnvPrefix("CDT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using client config:", viper.ConfigFileUsed())
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
