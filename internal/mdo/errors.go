package mdo

import (
	"errors"
	"fmt"
)

// Domain errors for graph construction and evaluation.
var (
	// ErrMissingInput indicates a component was evaluated without one of
	// its declared inputs.
	ErrMissingInput = errors.New("mdo: missing required input")

	// ErrUnknownOutput indicates a connection source that no member declares.
	ErrUnknownOutput = errors.New("mdo: connection references unknown output")

	// ErrUnknownInput indicates a connection target that no member declares.
	ErrUnknownInput = errors.New("mdo: connection references unknown input")

	// ErrCycle indicates a connection cycle among explicit members of an
	// explicit group.
	ErrCycle = errors.New("mdo: connection cycle in explicit group")

	// ErrNumericDomain indicates a NaN or Inf in a computed value.
	ErrNumericDomain = errors.New("mdo: numeric domain error (NaN or Inf)")

	// ErrNoSolver indicates an implicit group evaluated without a solver.
	ErrNoSolver = errors.New("mdo: implicit group has no solver attached")
)

// EvalError wraps an error with the component it occurred in.
type EvalError struct {
	Component string
	Wrapped   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Component, e.Wrapped)
}

func (e *EvalError) Unwrap() error {
	return e.Wrapped
}

// SolverDivergedError reports an implicit solve that hit its iteration
// limit, carrying the last residual vector.
type SolverDivergedError struct {
	Iterations int
	Residual   []float64
	MaxAbs     float64
}

func (e *SolverDivergedError) Error() string {
	return fmt.Sprintf("mdo: solver diverged after %d iterations (max residual %.3e)", e.Iterations, e.MaxAbs)
}

// OptimizationFailedError reports a driver run that found no feasible
// optimum, carrying the best point seen.
type OptimizationFailedError struct {
	Iterations int
	Best       map[string]float64
	Objective  float64
	Violation  float64
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("mdo: optimization failed after %d iterations (violation %.3e)", e.Iterations, e.Violation)
}

// CheckOutputs validates computed values, wrapping ErrNumericDomain with
// the component name when any entry is NaN or Inf.
func CheckOutputs(component string, out Values) error {
	if out.IsValid() {
		return nil
	}
	return &EvalError{Component: component, Wrapped: ErrNumericDomain}
}

// RequireInputs verifies every name is present in, wrapping ErrMissingInput
// with the component and variable name on the first miss.
func RequireInputs(component string, in Values, names []string) error {
	for _, n := range names {
		if _, ok := in[n]; !ok {
			return &EvalError{Component: component, Wrapped: fmt.Errorf("%w: %s", ErrMissingInput, n)}
		}
	}
	return nil
}
