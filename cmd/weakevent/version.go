package main

import (
	"fmt"
	"strings"

	"github.com/dylansturg/weakevent"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of weakevent",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("weakevent version %s\n", strings.TrimSpace(weakevent.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
