// Wayfarer is a text-adventure engine with real-time combat, a
// fog-of-war world map and an optional remote storyteller.
// Usage: wayfarer play [flags] [game_directory]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathoo/wayfarer/config"
	"github.com/nathoo/wayfarer/logging"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfg       config.Config
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "wayfarer",
	Short: "Wayfarer text-adventure engine",
	Long: `Wayfarer plays Lua-authored adventures with real-time combat, pets,
quests and achievements, a fog-of-war map, and an optional remote
narrative service. Configuration comes from WAYFARER_* environment
variables; flags override them.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text or json)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(spectateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment, applies the persistent flags and
// sets up logging. Subcommands apply their own flags afterwards.
func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.FromEnv()
	if err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	// Logs go to stderr so they stay out of piped game output.
	logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "wayfarer %s (commit %s, built %s)\n", version, commit, date)
	},
}
