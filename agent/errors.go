package agent

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when a task is started while another run is active.
var ErrBusy = errors.New("a task execution is already in progress")

// ToolErrorKind classifies a failed tool operation. Tool errors are reported
// back into the conversation as tool results so the model can adapt; they
// never abort the run by themselves.
type ToolErrorKind string

const (
	ErrKindNotFound      ToolErrorKind = "not_found"
	ErrKindNoMatch       ToolErrorKind = "no_match"
	ErrKindPatternError  ToolErrorKind = "pattern_error"
	ErrKindPathViolation ToolErrorKind = "path_violation"
	ErrKindTimedOut      ToolErrorKind = "timed_out"
	ErrKindReadError     ToolErrorKind = "read_error"
	ErrKindWriteError    ToolErrorKind = "write_error"
	ErrKindBadArgument   ToolErrorKind = "bad_argument"
)

// ToolError is a classified, recoverable tool-level failure.
type ToolError struct {
	Kind ToolErrorKind
	Path string
	Msg  string
}

func (e *ToolError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Path, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newToolError(kind ToolErrorKind, path, format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

// ToolErrorKindOf returns the kind of err if it is a ToolError, or "".
func ToolErrorKindOf(err error) ToolErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// ValidationError indicates a malformed task request, rejected before any
// run state is created.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task request: %s: %s", e.Field, e.Msg)
}
