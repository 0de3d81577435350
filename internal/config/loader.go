package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultCategoryPrecedence is the category policy applied when the config
// does not set one. Categories in the same group share a rank; unlisted
// categories sort after all listed ones.
var DefaultCategoryPrecedence = [][]string{
	{"security", "injection"},
	{"correctness", "tests"},
	{"performance"},
	{"style"},
}

// Load reads and parses a loop configuration from the given YAML file path.
// After parsing, it applies defaults to fields that are unset.
func Load(path string) (*LoopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg LoopConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a loop config in standard locations and loads the
// first one found. Search order: ./reviewloop.yaml, ~/.reviewloop/config.yaml
func LoadDefault() (*LoopConfig, error) {
	candidates := []string{"reviewloop.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".reviewloop", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no loop config found (searched: %v)", candidates)
}

// applyDefaults fills unset budgets and per-worker timeouts from loop-level
// defaults, and installs the default category precedence when none is given.
func applyDefaults(cfg *LoopConfig) {
	l := &cfg.Loop

	if l.MaxIterations <= 0 {
		l.MaxIterations = 5
	}
	if l.MaxIssuesPerRound <= 0 {
		l.MaxIssuesPerRound = 20
	}
	if l.RetryCap <= 0 {
		l.RetryCap = 3
	}
	if l.Concurrency <= 0 {
		l.Concurrency = 4
	}
	if l.Corpus == "" {
		l.Corpus = "."
	}

	for i := range l.Workers {
		w := &l.Workers[i]
		if w.Timeout == "" && l.Defaults.Timeout != "" {
			w.Timeout = l.Defaults.Timeout
		}
	}

	if len(l.CategoryPrecedence) == 0 {
		l.CategoryPrecedence = DefaultCategoryPrecedence
	}
}
