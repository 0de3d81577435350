package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lucasnoah/reviewloop/internal/review"
)

// Store checkpoints loop state on disk, one run per directory. The
// serialized form round-trips LoopState exactly — same queue order, same
// attempts counters — so an interrupted run can resume.
type Store struct {
	baseDir string // defaults to ~/.reviewloop/runs
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.reviewloop/runs, creating the
// directory if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".reviewloop", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) statePath(run string) string {
	return filepath.Join(s.baseDir, run, "state.json")
}

// checkpoint is the on-disk envelope around LoopState.
type checkpoint struct {
	Run       string            `json:"run"`
	UpdatedAt string            `json:"updated_at"`
	State     *review.LoopState `json:"state"`
}

// Save writes the state for a run atomically.
func (s *Store) Save(run string, state *review.LoopState) error {
	cp := checkpoint{
		Run:       run,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		State:     state,
	}
	if err := writeJSON(s.statePath(run), cp); err != nil {
		return fmt.Errorf("save run %q: %w", run, err)
	}
	return nil
}

// Load reads the state for a run.
func (s *Store) Load(run string) (*review.LoopState, error) {
	var cp checkpoint
	if err := readJSON(s.statePath(run), &cp); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run %q not found", run)
		}
		return nil, err
	}
	if cp.State == nil {
		return nil, fmt.Errorf("run %q has no state", run)
	}
	return cp.State, nil
}

// List returns the names of all checkpointed runs, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.baseDir, err)
	}

	var runs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(s.statePath(e.Name())); err == nil {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// Delete removes a run's checkpoint directory.
func (s *Store) Delete(run string) error {
	return os.RemoveAll(filepath.Join(s.baseDir, run))
}

// Checkpoint binds the store to one run name, satisfying the loop's
// Checkpointer interface.
type Checkpoint struct {
	store *Store
	run   string
}

// Checkpoint returns a per-run checkpointer.
func (s *Store) Checkpoint(run string) *Checkpoint {
	return &Checkpoint{store: s, run: run}
}

func (c *Checkpoint) Save(state *review.LoopState) error {
	return c.store.Save(c.run, state)
}
