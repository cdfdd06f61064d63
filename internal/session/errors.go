package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWrongStage is returned when an operation is not valid in the current stage.
	ErrWrongStage = errors.New("session: operation not allowed in this stage")
	// ErrSessionFailed is returned by every operation except Reset once the
	// session has hit a fatal error.
	ErrSessionFailed = errors.New("session: session failed, reset required")
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("session: action already pending")
)

// ValidationError names required user input that is missing. It never
// reaches the gateway.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "session: missing required input: " + strings.Join(e.Fields, ", ")
}

// InvariantViolation reports a prior-stage artifact that is missing when a
// later stage needs it. It is always fatal to the session.
type InvariantViolation struct {
	What string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("session: invariant violated: %s", e.What)
}

// Failure pairs the message shown to the user with its cause.
type Failure struct {
	Msg string
	Err error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Msg
	}
	return f.Msg + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// User-facing messages.
const (
	msgQuestionsFailed = "Sorry, I had trouble crafting your questions. Please start over."
	msgBlueprintFailed = "I had trouble generating your blueprint. Please try again."
	msgInvariant       = "Something went wrong with your session. Please start over."
	msgVibeFailed      = "I couldn't come up with vibe-check questions just now. Try again."
	msgAnalysisFailed  = "I couldn't analyze that context just now. Try again."
)
