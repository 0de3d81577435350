package config

// LoopConfig is the top-level configuration structure parsed from loop YAML.
type LoopConfig struct {
	Loop Loop `yaml:"loop"`
}

// Loop defines the full quality loop: target corpus, budgets, workers,
// the fixer, the validation gate, and the category precedence policy.
type Loop struct {
	Name               string     `yaml:"name"`
	Corpus             string     `yaml:"corpus"` // root directory of the target corpus
	MaxIterations      int        `yaml:"max_iterations"`
	MaxIssuesPerRound  int        `yaml:"max_issues_per_round"`
	RetryCap           int        `yaml:"retry_cap"`
	Concurrency        int        `yaml:"concurrency"`
	Defaults           Defaults   `yaml:"defaults"`
	Workers            []Worker   `yaml:"workers"`
	Fixer              Command    `yaml:"fixer"`
	Validate           Command    `yaml:"validate"`
	CategoryPrecedence [][]string `yaml:"category_precedence"`
}

// Defaults holds values applied to workers that don't specify their own.
type Defaults struct {
	Timeout string `yaml:"timeout"`
}

// Worker defines one analysis capability provider: a shell command run in
// the corpus directory that emits findings as JSON on stdout.
type Worker struct {
	Capability string `yaml:"capability"`
	Command    string `yaml:"command"`
	Timeout    string `yaml:"timeout"`
}

// Command is a plain shell invocation with an optional timeout, used for
// the fixer and the validation gate.
type Command struct {
	Command string `yaml:"command"`
	Timeout string `yaml:"timeout"`
}
