package plan

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneratedCodeRejected marks a plan that failed validation and was
	// never evaluated.
	ErrGeneratedCodeRejected = errors.New("generated plan rejected")
	// ErrCapabilityExecution marks a validated plan that failed while running.
	ErrCapabilityExecution = errors.New("capability execution failed")
	// ErrInvalidJSON marks a response that is not a JSON document at all.
	ErrInvalidJSON = errors.New("plan is not valid JSON")
)

// Rejection stages.
const (
	StageShape   = "shape"   // CUE schema: op names, fields, value types
	StageColumns = "columns" // column allow-list and step ordering
)

// RejectedError reports a plan that must not run.
type RejectedError struct {
	Stage string
	Step  int // 1-based step index, 0 when the whole document is at fault
	Msg   string
}

func (e *RejectedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Step > 0 {
		return fmt.Sprintf("%s: %s: step %d: %s", ErrGeneratedCodeRejected, e.Stage, e.Step, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrGeneratedCodeRejected, e.Stage, e.Msg)
}

func (e *RejectedError) Unwrap() error { return ErrGeneratedCodeRejected }

func rejectf(stage string, step int, format string, args ...any) error {
	return &RejectedError{Stage: stage, Step: step, Msg: fmt.Sprintf(format, args...)}
}

// ExecutionError reports a failure while evaluating a validated plan.
type ExecutionError struct {
	Step  int
	Cause error
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Step > 0 {
		return fmt.Sprintf("%s: step %d: %v", ErrCapabilityExecution, e.Step, e.Cause)
	}
	return fmt.Sprintf("%s: %v", ErrCapabilityExecution, e.Cause)
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// ErrCapabilityExecution as well as context.DeadlineExceeded.
func (e *ExecutionError) Unwrap() []error { return []error{ErrCapabilityExecution, e.Cause} }
