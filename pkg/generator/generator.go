// Package generator produces the well-formed baseline documents that each
// fuzzing iteration starts from.
package generator

import (
	"context"
	"fmt"
)

// Generator writes a fresh baseline document into dir and returns its path.
type Generator interface {
	CreateBaseline(ctx context.Context, dir string) (string, error)
}

// SetupError reports a failure to produce a baseline. It is a harness
// problem, never a finding.
type SetupError struct {
	Generator string
	Err       error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("generator %s failed: %v", e.Generator, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func setupErr(name string, format string, args ...any) error {
	return &SetupError{Generator: name, Err: fmt.Errorf(format, args...)}
}
