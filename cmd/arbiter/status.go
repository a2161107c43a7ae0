package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/arbiter-dev/arbiter/internal/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and component health",
	RunE:  runStatus,
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show recent coordination decisions",
	RunE:  runDecisions,
}

var decisionsLimit int

func init() {
	statusCmd.AddCommand(decisionsCmd)
	decisionsCmd.Flags().IntVar(&decisionsLimit, "limit", 20, "Maximum number of decisions to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	var health struct {
		OK         bool                              `json:"ok"`
		Components map[string]models.ComponentStatus `json:"components"`
		Time       string                            `json:"time"`
	}
	if err := apiGet("/health", &health); err != nil {
		return err
	}

	if health.OK {
		fmt.Println("Arbiter daemon: healthy")
	} else {
		fmt.Println("Arbiter daemon: degraded")
	}

	names := make([]string, 0, len(health.Components))
	for name := range health.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, health.Components[name])
	}
	return w.Flush()
}

func runDecisions(cmd *cobra.Command, args []string) error {
	var recs []models.DecisionRecord
	if err := apiGet(fmt.Sprintf("/decisions?limit=%d", decisionsLimit), &recs); err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No decisions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tACTOR\tRESOURCE\tOUTCOME")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.Timestamp.Local().Format("Jan 02 15:04:05"), rec.Kind, rec.Actor, rec.Resource, rec.Outcome)
	}
	return w.Flush()
}
