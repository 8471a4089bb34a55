package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SwapChat/internal/config"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "swapchat",
	Short: "SwapChat - two-party conversation client",
	Long: `swapchat opens a conversation between two users of the exchange
service and keeps it in sync with the server.

Examples:
  # Chat in conversation 42 as user 7
  swapchat chat --conversation 42 --user 7

  # Run the reference conversation service
  swapchat serve --addr :8000 --db swapchat.db`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-dir", "", "Directory for log, trace and metric files")
}

// loadConfig reads the environment and applies the flags shared by all commands
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("log-dir") {
		cfg.LogDir, _ = flags.GetString("log-dir")
	}
	return cfg, nil
}
