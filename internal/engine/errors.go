package engine

import (
	"errors"
	"fmt"
)

// ErrLoadTimeout is returned when the engine did not become available
// within the polling budget.
var ErrLoadTimeout = errors.New("engine: load timed out")

// LoadError is returned when the engine could not be loaded: a resource
// failed to load, injection failed, or the polling budget ran out.
type LoadError struct {
	Engine string
	Src    string
	Cause  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("engine: load %s (%s): %v", e.Engine, e.Src, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// TypesetError is returned when the engine's typeset (or clear) operation
// rejected.
type TypesetError struct {
	Engine string
	Op     string // clear | typeset
	Cause  error
}

func (e *TypesetError) Error() string {
	return fmt.Sprintf("engine: %s %s failed: %v", e.Engine, e.Op, e.Cause)
}

func (e *TypesetError) Unwrap() error { return e.Cause }
