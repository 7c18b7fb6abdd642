package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dylansturg/weakevent/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weakevent",
	Short: "Weakevent demonstrates weakly referenced event subscriptions",
	Long: `Weakevent ships the tooling around event handlers that hold their
subscribers weakly: a churn simulator, a Redis backed notice relay and
starter configuration.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "weakevent.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// newLogger builds the logger for a command run. The flag wins over the
// configuration file.
func newLogger(cmd *cobra.Command, cfg config) (*slog.Logger, error) {
	name := cfg.LogLevel
	if flag, _ := cmd.Flags().GetString("log-level"); flag != "" {
		name = flag
	}

	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}
