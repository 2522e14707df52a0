package sandbox

import "time"

// OutcomeKind tags which variant an Outcome holds
type OutcomeKind int

// Outcome variants; exactly one per run
const (
	OutcomeSuccess OutcomeKind = iota + 1
	OutcomeTimedOut
	OutcomeNonZeroExit
	OutcomeProcessError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeNonZeroExit:
		return "nonzero_exit"
	case OutcomeProcessError:
		return "process_error"
	default:
		return "unknown"
	}
}

// DefaultFailureMessage stands in for empty stderr on a nonzero exit
const DefaultFailureMessage = "Code execution failed"

// Outcome is the terminal result of one sandboxed run. Only the fields of
// the active variant are meaningful: Stdout for Success, Budget for
// TimedOut, Stderr for NonZeroExit and Message for ProcessError.
type Outcome struct {
	Kind    OutcomeKind
	Stdout  string
	Stderr  string
	Message string
	Budget  time.Duration
	Elapsed time.Duration
}

// Success wraps the captured stdout of a zero exit
func Success(stdout string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Stdout: stdout}
}

// TimedOut records that the wall-clock budget was exceeded
func TimedOut(budget time.Duration) Outcome {
	return Outcome{Kind: OutcomeTimedOut, Budget: budget}
}

// NonZeroExit wraps the captured stderr of a failed run
func NonZeroExit(stderr string) Outcome {
	if stderr == "" {
		stderr = DefaultFailureMessage
	}
	return Outcome{Kind: OutcomeNonZeroExit, Stderr: stderr}
}

// ProcessError records a failure to start or supervise the child
func ProcessError(message string) Outcome {
	return Outcome{Kind: OutcomeProcessError, Message: message}
}
