package main

import (
	"fmt"

	"github.com/arbiter-dev/arbiter/internal/clients"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect tasks tracked by the knowledge service",
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task's current status",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

func init() {
	taskCmd.AddCommand(taskShowCmd)
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	var task clients.Task
	if err := apiGet("/tasks/"+args[0], &task); err != nil {
		return err
	}

	fmt.Printf("Task:    %s\n", task.ID)
	fmt.Printf("Project: %s\n", task.ProjectID)
	fmt.Printf("Title:   %s\n", task.Title)
	fmt.Printf("Status:  %s\n", task.Status)
	return nil
}
