package sandbox

import (
	"errors"
	"fmt"
	"time"
)

// Failure kinds. Every *ExecutionError unwraps to exactly one of these.
var (
	ErrValidationRejected = errors.New("validation rejected")
	ErrExecutionTimedOut  = errors.New("execution timed out")
	ErrExecutionFailed    = errors.New("execution failed")
	ErrProcessSpawn       = errors.New("process spawn error")
	ErrMalformedOutput    = errors.New("malformed output")
	ErrInvalidShape       = errors.New("invalid shape")
)

var kindCodes = map[error]string{
	ErrValidationRejected: "validation_rejected",
	ErrExecutionTimedOut:  "execution_timed_out",
	ErrExecutionFailed:    "execution_failed",
	ErrProcessSpawn:       "process_spawn_error",
	ErrMalformedOutput:    "malformed_output",
	ErrInvalidShape:       "invalid_shape",
}

// ExecutionError is a classified sandbox failure. Error returns a message
// suitable for showing to the submitter.
type ExecutionError struct {
	Kind   error
	Detail string
}

func newError(kind error, detail string) *ExecutionError {
	return &ExecutionError{Kind: kind, Detail: detail}
}

func (e *ExecutionError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Detail
}

func (e *ExecutionError) Unwrap() error {
	return e.Kind
}

// Code returns a stable snake_case identifier for the kind
func (e *ExecutionError) Code() string {
	if code, ok := kindCodes[e.Kind]; ok {
		return code
	}
	return "unknown"
}

// ErrorCode returns the Code of err if it is an *ExecutionError, else "internal"
func ErrorCode(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code()
	}
	return "internal"
}

// outcomeError maps a non-success outcome to its ExecutionError
func outcomeError(o Outcome) *ExecutionError {
	switch o.Kind {
	case OutcomeTimedOut:
		return newError(ErrExecutionTimedOut, "Code execution timed out after "+formatBudget(o.Budget))
	case OutcomeNonZeroExit:
		return newError(ErrExecutionFailed, o.Stderr)
	case OutcomeProcessError:
		return newError(ErrProcessSpawn, "Execution error: "+o.Message)
	default:
		return newError(ErrProcessSpawn, fmt.Sprintf("Execution error: unexpected outcome %s", o.Kind))
	}
}

func formatBudget(d time.Duration) string {
	if d > 0 && d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int(d/time.Second))
	}
	return d.String()
}
