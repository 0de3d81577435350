package cli

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/lucasnoah/reviewloop/internal/config"
	"github.com/lucasnoah/reviewloop/internal/db"
	"github.com/lucasnoah/reviewloop/internal/dispatch"
	"github.com/lucasnoah/reviewloop/internal/fix"
	"github.com/lucasnoah/reviewloop/internal/loop"
	"github.com/lucasnoah/reviewloop/internal/queue"
	"github.com/lucasnoah/reviewloop/internal/review"
	"github.com/lucasnoah/reviewloop/internal/store"
	"github.com/lucasnoah/reviewloop/internal/worker"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the quality loop until it converges or a budget runs out",
	Long: `Run dispatches every configured analysis worker against the corpus,
aggregates and prioritizes the findings, applies verified fixes, and repeats.
The loop stops on convergence (no blocking findings and the validation gate
passes), on iteration budget exhaustion, or when two consecutive iterations
make identical progress.

State is checkpointed after every iteration; an interrupted run can pick up
where it left off with --resume.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		resume, _ := cmd.Flags().GetBool("resume")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", e)
			}
			return fmt.Errorf("invalid config: %d error(s)", len(errs))
		}

		database, st, err := openBackends()
		if err != nil {
			return err
		}
		defer database.Close()

		l := cfg.Loop
		runner := &worker.ExecRunner{}

		analyzers := make([]worker.Analyzer, 0, len(l.Workers))
		maxTimeout := 2 * time.Minute
		for _, w := range l.Workers {
			timeout := config.ParseTimeout(w.Timeout, 2*time.Minute)
			if timeout > maxTimeout {
				maxTimeout = timeout
			}
			analyzers = append(analyzers,
				worker.NewExecAnalyzer(w.Capability, w.Command, l.Corpus, timeout, runner))
		}

		rescan := worker.NewScopedRescan(analyzers)
		fixer := worker.NewExecFixer(l.Fixer.Command, l.Corpus,
			config.ParseTimeout(l.Fixer.Timeout, 5*time.Minute), runner, rescan)
		validator := worker.NewExecValidator(l.Validate.Command, l.Corpus,
			config.ParseTimeout(l.Validate.Timeout, 10*time.Minute), runner)

		opts := loop.Options{
			Analyzers: analyzers,
			// Workers enforce their own timeouts; the dispatcher's slightly
			// longer deadline only catches runaway command startup.
			Dispatcher:  dispatch.New(l.Concurrency, maxTimeout+30*time.Second),
			Prioritizer: queue.NewPrioritizer(l.CategoryPrecedence, l.MaxIssuesPerRound),
			Applier:     fix.NewApplier(fixer, l.RetryCap),
			Checker:     loop.NewChecker(validator, l.MaxIterations),
			Reporter:    &consoleReporter{out: cmd.OutOrStdout()},
			Events:      database.Logger(l.Name),
			Checkpoint:  st.Checkpoint(l.Name),
		}

		if resume {
			state, err := st.Load(l.Name)
			if err != nil {
				return fmt.Errorf("resume: %w", err)
			}
			state.Terminal = review.TerminalNone
			opts.Resume = state
			fmt.Fprintf(cmd.OutOrStdout(), "Resuming run %q from iteration %d\n", l.Name, state.Iteration)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Running loop %q over %s (%d workers, %d max iterations)\n",
			l.Name, l.Corpus, len(l.Workers), l.MaxIterations)

		state, err := loop.NewController(opts).Run(ctx)
		if err != nil {
			return fmt.Errorf("loop interrupted: %w", err)
		}

		switch state.Terminal {
		case review.TerminalSuccess:
			fmt.Fprintf(cmd.OutOrStdout(), "Converged after %d iteration(s)\n", state.Iteration)
			return nil
		case review.TerminalExhausted:
			return fmt.Errorf("iteration budget exhausted after %d iteration(s)", state.Iteration)
		case review.TerminalStalled:
			return fmt.Errorf("stalled: no progress across consecutive iterations (stopped at iteration %d)", state.Iteration)
		default:
			return fmt.Errorf("loop stopped without a terminal state at iteration %d", state.Iteration)
		}
	},
}

func init() {
	runCmd.Flags().String("config", "", "Path to loop config (default: ./reviewloop.yaml, then ~/.reviewloop/config.yaml)")
	runCmd.Flags().Bool("resume", false, "Resume the run from its last checkpoint")
}

// loadConfig loads an explicit config path or falls back to the default
// search locations.
func loadConfig(path string) (*config.LoopConfig, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// openBackends opens the event log database and the checkpoint store,
// both under ~/.reviewloop/.
func openBackends() (*db.DB, *store.Store, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, nil, fmt.Errorf("db path: %w", err)
	}
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	st, err := store.DefaultStore()
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("store: %w", err)
	}
	return database, st, nil
}

// consoleReporter renders one line per iteration.
type consoleReporter struct {
	out io.Writer
}

func (r *consoleReporter) Progress(ev loop.ProgressEvent) {
	rec := ev.Record
	fmt.Fprintf(r.out, "iteration %d: %d critical, %d warning, %d suggestion | fixed %d, failed %d, skipped %d",
		ev.Iteration, rec.Criticals, rec.Warnings, rec.Suggestions, rec.Fixed, rec.Failed, rec.Skipped)
	if rec.Validation != nil {
		if rec.Validation.Passed {
			fmt.Fprint(r.out, " | validation passed")
		} else {
			fmt.Fprint(r.out, " | validation failed")
		}
	}
	if len(rec.WorkerErrors) > 0 {
		fmt.Fprintf(r.out, " | %d worker error(s)", len(rec.WorkerErrors))
	}
	fmt.Fprintln(r.out)

	for _, msg := range rec.WorkerErrors {
		fmt.Fprintf(r.out, "  worker: %s\n", msg)
	}
}
