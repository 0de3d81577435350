package cli

import (
	"fmt"
	"strconv"

	"github.com/lucasnoah/reviewloop/internal/db"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <run>",
	Short: "Show the logged history of a run",
	Long: `History reads the event log: iteration lifecycle events for the whole
run, or per-iteration worker outcomes and fix attempts with --iteration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, _, err := openBackends()
		if err != nil {
			return err
		}
		defer database.Close()

		run := args[0]
		w := cmd.OutOrStdout()

		iterFlag, _ := cmd.Flags().GetString("iteration")
		if iterFlag != "" {
			iteration, err := strconv.Atoi(iterFlag)
			if err != nil {
				return fmt.Errorf("invalid iteration %q", iterFlag)
			}
			return printIteration(cmd, database, run, iteration)
		}

		events, err := database.IterationEvents(run)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintf(w, "No events logged for run %q.\n", run)
			return nil
		}

		fmt.Fprintf(w, "%-20s %-5s %-12s %s\n", "TIMESTAMP", "ITER", "EVENT", "DETAIL")
		for _, e := range events {
			fmt.Fprintf(w, "%-20s %-5d %-12s %s\n", e.Timestamp, e.Iteration, e.Event, e.Detail)
		}
		return nil
	},
}

func printIteration(cmd *cobra.Command, database *db.DB, run string, iteration int) error {
	w := cmd.OutOrStdout()

	runs, err := database.WorkerRuns(run, iteration)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Workers (iteration %d):\n", iteration)
	if len(runs) == 0 {
		fmt.Fprintln(w, "  none logged")
	}
	for _, r := range runs {
		line := fmt.Sprintf("  %-12s %-10s %d finding(s)", r.Capability, r.Kind, r.Findings)
		if r.Error != "" {
			line += " — " + firstLine(r.Error)
		}
		fmt.Fprintln(w, line)
	}

	attempts, err := database.FixAttempts(run, iteration)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "Fix attempts:")
	if len(attempts) == 0 {
		fmt.Fprintln(w, "  none logged")
	}
	for _, a := range attempts {
		line := fmt.Sprintf("  %-30s %-12s attempt %d: %s", a.Location, a.Category, a.Attempt, a.Status)
		if a.LastError != "" {
			line += " — " + firstLine(a.LastError)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func init() {
	historyCmd.Flags().String("iteration", "", "Show worker runs and fix attempts for one iteration")
}
