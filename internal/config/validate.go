package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a LoopConfig for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *LoopConfig) []ValidationError {
	var errs []ValidationError
	l := cfg.Loop

	if l.Name == "" {
		errs = append(errs, ValidationError{Field: "loop.name", Message: "is required"})
	}
	if len(l.Workers) == 0 {
		errs = append(errs, ValidationError{Field: "loop.workers", Message: "at least one worker is required"})
	}

	seen := make(map[string]bool)
	for i, w := range l.Workers {
		prefix := fmt.Sprintf("loop.workers[%d]", i)
		if w.Capability == "" {
			errs = append(errs, ValidationError{Field: prefix + ".capability", Message: "is required"})
			continue
		}
		if seen[w.Capability] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".capability",
				Message: fmt.Sprintf("duplicate capability %q", w.Capability),
			})
		}
		seen[w.Capability] = true

		if w.Command == "" {
			errs = append(errs, ValidationError{Field: prefix + ".command", Message: "is required"})
		}
		if w.Timeout != "" {
			if _, err := time.ParseDuration(w.Timeout); err != nil {
				errs = append(errs, ValidationError{
					Field:   prefix + ".timeout",
					Message: fmt.Sprintf("invalid duration %q", w.Timeout),
				})
			}
		}
	}

	if l.Fixer.Command == "" {
		errs = append(errs, ValidationError{Field: "loop.fixer.command", Message: "is required"})
	}
	if l.Validate.Command == "" {
		errs = append(errs, ValidationError{Field: "loop.validate.command", Message: "is required"})
	}

	for _, c := range []struct {
		field   string
		timeout string
	}{
		{"loop.defaults.timeout", l.Defaults.Timeout},
		{"loop.fixer.timeout", l.Fixer.Timeout},
		{"loop.validate.timeout", l.Validate.Timeout},
	} {
		if c.timeout == "" {
			continue
		}
		if _, err := time.ParseDuration(c.timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   c.field,
				Message: fmt.Sprintf("invalid duration %q", c.timeout),
			})
		}
	}

	// A category may appear in at most one precedence group.
	ranked := make(map[string]bool)
	for i, group := range l.CategoryPrecedence {
		for _, cat := range group {
			if ranked[cat] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("loop.category_precedence[%d]", i),
					Message: fmt.Sprintf("category %q listed more than once", cat),
				})
			}
			ranked[cat] = true
		}
	}

	return errs
}

// ParseTimeout parses a duration string, falling back to def when the
// string is empty or invalid.
func ParseTimeout(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
