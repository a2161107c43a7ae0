package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: "Arbiter - multi-agent coordination control plane",
	Long:  `Arbiter coordinates autonomous agent subsystems over a shared project: it routes free-text requests, arbitrates write conflicts, manages distributed locks, and runs multi-step agent workflows.`,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7521", "API server address")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(permCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
