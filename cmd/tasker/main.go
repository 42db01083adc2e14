// Package main implements the tasker service command.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "tasker",
	Short:        "Task tracker whose tasks complete on their own after a fixed delay",
	SilenceUsage: true,
}
