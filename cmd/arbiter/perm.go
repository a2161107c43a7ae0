package main

import (
	"fmt"
	"strings"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/spf13/cobra"
)

var permOperation string

var permCmd = &cobra.Command{
	Use:   "perm [identity] [path]",
	Short: "Check whether an identity may operate on a path",
	Args:  cobra.ExactArgs(2),
	RunE:  runPerm,
}

func init() {
	permCmd.Flags().StringVar(&permOperation, "op", "write", "Operation to check (read, query, write, create, modify)")
}

func runPerm(cmd *cobra.Command, args []string) error {
	req := map[string]string{
		"identity":  args[0],
		"path":      args[1],
		"operation": permOperation,
	}

	var perm models.WritePermission
	if err := apiPost("/permissions/check", req, &perm); err != nil {
		return err
	}

	if !perm.Allowed {
		fmt.Printf("Denied: %s may not %s %s\n", args[0], permOperation, args[1])
		return nil
	}

	fmt.Printf("Allowed: %s may %s %s\n", args[0], permOperation, args[1])
	if perm.RequiresValidation {
		names := make([]string, len(perm.Validators))
		for i, v := range perm.Validators {
			names[i] = string(v)
		}
		fmt.Printf("Requires validation by: %s\n", strings.Join(names, ", "))
	}
	return nil
}
