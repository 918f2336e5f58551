package dynamo

import (
	"errors"
	"fmt"
)

// ErrInvalidState indicates the integrated state left the finite range.
var ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

// StepError wraps an integration failure with the simulated time it
// happened at.
type StepError struct {
	Time    float64
	State   State
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("t=%.4f: %v", e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
