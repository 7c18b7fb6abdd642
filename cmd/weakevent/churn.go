package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dylansturg/weakevent"
	"github.com/dylansturg/weakevent/internal/churn"
	"github.com/dylansturg/weakevent/internal/presentation/tui"
)

var churnCmd = &cobra.Command{
	Use:   "churn",
	Short: "Run a subscriber churn scenario",
	Long: `Attaches generations of weakly held subscribers, raises events through
them, releases them to the garbage collector and reports how deliveries
turn into silent drops.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		logger, err := newLogger(cmd, cfg)
		if err != nil {
			fmt.Printf("Error configuring logging: %v\n", err)
			os.Exit(1)
		}

		sc := cfg.Churn
		if v, _ := cmd.Flags().GetInt("generations"); v > 0 {
			sc.Generations = v
		}
		if v, _ := cmd.Flags().GetInt("subscribers"); v > 0 {
			sc.Subscribers = v
		}
		if v, _ := cmd.Flags().GetInt("raises"); v > 0 {
			sc.Raises = v
		}

		if tui.Interactive() {
			tui.PrintBanner(strings.TrimSpace(weakevent.Version))
		}

		report, err := churn.Run(cmd.Context(), sc, logger)
		if err != nil {
			fmt.Printf("Churn run failed: %v\n", err)
			os.Exit(1)
		}

		md := report.Markdown()
		if tui.Interactive() {
			render := tui.NewRenderer()
			if out, err := render(md); err == nil {
				fmt.Print(out)
				return
			}
		}
		fmt.Print(md)
	},
}

func init() {
	rootCmd.AddCommand(churnCmd)
	churnCmd.Flags().Int("generations", 0, "Override the number of generations")
	churnCmd.Flags().Int("subscribers", 0, "Override subscribers per generation")
	churnCmd.Flags().Int("raises", 0, "Override raises per generation")
}
