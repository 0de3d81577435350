package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [run]",
	Short: "Show status of checkpointed runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, st, err := openBackends()
		if err != nil {
			return err
		}
		defer database.Close()

		format, _ := cmd.Flags().GetString("format")

		if len(args) == 1 {
			state, err := st.Load(args[0])
			if err != nil {
				return err
			}
			if format == "json" {
				data, _ := json.MarshalIndent(state, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printRunStatus(cmd, args[0], state)
			return nil
		}

		runs, err := st.List()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %-5s %-10s %-6s %s\n", "RUN", "ITER", "TERMINAL", "QUEUE", "UNRESOLVED")
		for _, run := range runs {
			state, err := st.Load(run)
			if err != nil {
				fmt.Fprintf(w, "%-20s (unreadable: %v)\n", run, err)
				continue
			}
			unresolved := 0
			for _, e := range state.Queue {
				if !e.Status.Resolved() {
					unresolved++
				}
			}
			terminal := string(state.Terminal)
			if state.Terminal == review.TerminalNone {
				terminal = "-"
			}
			fmt.Fprintf(w, "%-20s %-5d %-10s %-6d %d\n", run, state.Iteration, terminal, len(state.Queue), unresolved)
		}
		return nil
	},
}

func printRunStatus(cmd *cobra.Command, run string, state *review.LoopState) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:       %s\n", run)
	fmt.Fprintf(w, "Iteration: %d\n", state.Iteration)
	if state.Terminal != review.TerminalNone {
		fmt.Fprintf(w, "Terminal:  %s\n", state.Terminal)
	}
	if len(state.Queue) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}

	fmt.Fprintf(w, "\n%-10s %-12s %-8s %-3s %s\n", "SEVERITY", "CATEGORY", "STATUS", "ATT", "LOCATION")
	for _, e := range state.Queue {
		fmt.Fprintf(w, "%-10s %-12s %-8s %-3d %s\n",
			e.Finding.Severity, e.Finding.Category, e.Status, e.Attempts, e.Finding.Location.String())
		if e.LastError != "" {
			fmt.Fprintf(w, "           %s\n", firstLine(e.LastError))
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or json")
}
