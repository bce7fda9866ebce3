package domain

import (
	"fmt"
	"strings"
)

// SchemaError reports a dataset whose header lacks required columns or
// whose rows have empty required cells.
type SchemaError struct {
	Path    string
	Missing []string
	Row     int
	Column  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("dataset %s: missing required column(s): %s", e.Path, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("dataset %s: row %d has empty %q", e.Path, e.Row, e.Column)
}

// LoadError reports a dataset that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load dataset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RetrievalError wraps embedding or search failures for a single query.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// RephraseError wraps failures of the generative service.
type RephraseError struct {
	Model string
	Err   error
}

func (e *RephraseError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("rephrase failed: %v", e.Err)
	}
	return fmt.Sprintf("rephrase with %s failed: %v", e.Model, e.Err)
}

func (e *RephraseError) Unwrap() error { return e.Err }
