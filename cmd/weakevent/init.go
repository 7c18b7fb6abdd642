package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

const starterConfig = `# weakevent configuration
log_level: info

relay:
  redis:
    address: localhost:6379
    password: ""
    db: 0
  channel: weakevent.notices
  listen: :8080
  exclusive: false
  history: 128
  lease_ttl: 30s
  subscriber_ttl: 60s
  sweep_every: 1s
  prune_every: 15s

churn:
  generations: 3
  subscribers: 100
  raises: 10
  settle_limit: 10s
`

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter configuration file",
	Long:  `Writes a weakevent.yaml with the default relay and churn settings into the given directory (default: the current one).`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Printf("Error creating %s: %v\n", dir, err)
			os.Exit(1)
		}

		path := filepath.Join(dir, "weakevent.yaml")
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Refusing to overwrite existing %s\n", path)
			os.Exit(1)
		}

		if err := os.WriteFile(path, []byte(starterConfig), 0o644); err != nil {
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
