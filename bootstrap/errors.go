package bootstrap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidContext is returned when the host supplies a missing or malformed launch context
	ErrInvalidContext = errors.New("invalid launch context")

	// ErrStepTimeout is returned when a step does not finish within its time budget
	ErrStepTimeout = errors.New("step exceeded its time budget")

	// ErrBaseStartupFailed is returned when the framework's own startup reports failure
	ErrBaseStartupFailed = errors.New("base startup reported failure")

	// ErrInvalidStep is returned by NewSequencer for malformed step definitions
	ErrInvalidStep = errors.New("invalid step definition")
)

// StepError records the failure of a single step. Mandatory is set when the
// failure aborted the run, which includes a timed-out optional step.
type StepError struct {
	Step      string
	Mandatory bool
	Err       error
}

func (e *StepError) Error() string {
	if e.Mandatory {
		return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("non-fatal step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
