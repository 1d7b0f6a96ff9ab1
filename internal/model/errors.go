package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRows indicates that no complete rows remained for fitting or scoring.
var ErrNoRows = errors.New("no complete rows to fit")

// UnsupportedOptionError indicates a selector value outside a closed set
// (model name, chart kind, overview option).
type UnsupportedOptionError struct {
	Option    string
	Value     string
	Supported []string
}

func (e *UnsupportedOptionError) Error() string {
	if len(e.Supported) == 0 {
		return fmt.Sprintf("unsupported %s %q", e.Option, e.Value)
	}
	return fmt.Sprintf("unsupported %s %q (choose %s)", e.Option, e.Value, quoteJoin(e.Supported))
}

// ValidationError indicates a prediction input that cannot be scored.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFittedError indicates a prediction against a model the context did not train.
type NotFittedError struct{ Kind Kind }

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("model %q is not fitted", e.Kind)
}

func quoteJoin(vals []string) string {
	q := make([]string, len(vals))
	for i, v := range vals {
		q[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(q, ", ")
}
