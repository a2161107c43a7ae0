package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [dir]",
	Short: "Sync a directory of markdown artifacts into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	var result struct {
		Ingested int `json:"ingested"`
	}
	if err := apiPost("/sync", map[string]string{"dir": dir}, &result); err != nil {
		return err
	}

	fmt.Printf("Ingested %d documents from %s\n", result.Ingested, dir)
	return nil
}
