package main

import (
	"fmt"
	"strings"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/spf13/cobra"
)

var routeContext string

var routeCmd = &cobra.Command{
	Use:   "route [text...]",
	Short: "Route a free-text request to a target subsystem",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeContext, "context", "", "Current conversation target (planner, knowledge, coder)")
}

func runRoute(cmd *cobra.Command, args []string) error {
	req := map[string]string{
		"text":           strings.Join(args, " "),
		"current_target": routeContext,
	}

	var result models.RouteResult
	if err := apiPost("/route", req, &result); err != nil {
		return err
	}

	fmt.Printf("Target:     %s\n", result.Target)
	fmt.Printf("Action:     %s\n", result.Action)
	fmt.Printf("Confidence: %.2f\n", result.Confidence)
	if result.Reasoning != "" {
		fmt.Printf("Reasoning:  %s\n", result.Reasoning)
	}
	return nil
}
