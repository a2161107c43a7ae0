package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/spf13/cobra"
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Start and manage agent workflows",
}

var workflowStartCmd = &cobra.Command{
	Use:   "start [input...]",
	Short: "Start a workflow execution",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runWorkflowStart,
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflow executions",
	RunE:  runWorkflowList,
}

var workflowShowCmd = &cobra.Command{
	Use:   "show [execution-id]",
	Short: "Show execution details",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowShow,
}

var workflowPauseCmd = &cobra.Command{
	Use:   "pause [execution-id]",
	Short: "Pause a running execution at the next step boundary",
	Args:  cobra.ExactArgs(1),
	RunE:  workflowAction("pause"),
}

var workflowResumeCmd = &cobra.Command{
	Use:   "resume [execution-id]",
	Short: "Resume a paused execution",
	Args:  cobra.ExactArgs(1),
	RunE:  workflowAction("resume"),
}

var workflowCancelCmd = &cobra.Command{
	Use:   "cancel [execution-id]",
	Short: "Cancel an execution",
	Args:  cobra.ExactArgs(1),
	RunE:  workflowAction("cancel"),
}

var (
	workflowName       string
	workflowScope      string
	workflowComplexity string
)

func init() {
	workflowCmd.AddCommand(workflowStartCmd, workflowListCmd, workflowShowCmd,
		workflowPauseCmd, workflowResumeCmd, workflowCancelCmd)

	workflowStartCmd.Flags().StringVar(&workflowName, "workflow", "", "Workflow tier (quick, feature, method, enterprise)")
	workflowStartCmd.Flags().StringVar(&workflowScope, "scope", "", "Task scope for recommendation (bugfix, hotfix, feature, greenfield)")
	workflowStartCmd.Flags().StringVar(&workflowComplexity, "complexity", "", "Task complexity for recommendation (simple, moderate, complex, enterprise)")
}

func runWorkflowStart(cmd *cobra.Command, args []string) error {
	req := map[string]string{
		"workflow":   workflowName,
		"scope":      workflowScope,
		"complexity": workflowComplexity,
		"input":      strings.Join(args, " "),
	}

	var result struct {
		ID       string `json:"id"`
		Workflow string `json:"workflow"`
	}
	if err := apiPost("/workflows", req, &result); err != nil {
		return err
	}

	fmt.Printf("Started %s workflow: %s\n", result.Workflow, result.ID)
	return nil
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	var execs []models.WorkflowExecution
	if err := apiGet("/workflows", &execs); err != nil {
		return err
	}

	if len(execs) == 0 {
		fmt.Println("No workflow executions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORKFLOW\tSTATUS\tSTEPS\tINPUT")
	for _, e := range execs {
		done := 0
		for _, step := range e.Steps {
			if step.Status == models.StepCompleted {
				done++
			}
		}
		input := e.Input
		if len(input) > 40 {
			input = input[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n", e.ID, e.Workflow, e.Status, done, len(e.Steps), input)
	}
	return w.Flush()
}

func runWorkflowShow(cmd *cobra.Command, args []string) error {
	var exec models.WorkflowExecution
	if err := apiGet("/workflows/"+args[0], &exec); err != nil {
		return err
	}

	fmt.Printf("Execution: %s\n", exec.ID)
	fmt.Printf("Workflow:  %s\n", exec.Workflow)
	fmt.Printf("Status:    %s\n", exec.Status)
	fmt.Printf("Input:     %s\n", exec.Input)
	if exec.Error != "" {
		fmt.Printf("Error:     %s\n", exec.Error)
	}
	fmt.Println("Steps:")
	for i, step := range exec.Steps {
		fmt.Printf("  %d. %-12s %s\n", i+1, step.Agent, step.Status)
		if step.Output != "" {
			out := step.Output
			if len(out) > 200 {
				out = out[:197] + "..."
			}
			fmt.Printf("     %s\n", out)
		}
	}
	return nil
}

func workflowAction(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := apiPost("/workflows/"+args[0]+"/"+action, struct{}{}, nil); err != nil {
			return err
		}
		fmt.Printf("Execution %s: %s requested\n", args[0], action)
		return nil
	}
}
