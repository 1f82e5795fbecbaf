// Package failure defines the closed set of error kinds a reindex run can
// produce. Every kind other than a precondition miss halts the remaining
// index types of the current date.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a reindex failure.
type Kind int

const (
	// Unknown is never produced by this module; it is the zero value.
	Unknown Kind = iota
	// InvalidDateFormat - a date bound could not be parsed as yyyy.mm.dd
	InvalidDateFormat
	// TemplateNotFound - the named template file does not exist
	TemplateNotFound
	// SystemInvocation - an external process could not be spawned or exited non-zero
	SystemInvocation
	// MalformedResponse - command output lacked the expected JSON shape
	MalformedResponse
	// VerificationMismatch - before and after record counts differ
	VerificationMismatch
	// Configuration - a required configuration key is absent
	Configuration
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case InvalidDateFormat:
		return "invalid date format"
	case TemplateNotFound:
		return "template not found"
	case SystemInvocation:
		return "system invocation error"
	case MalformedResponse:
		return "malformed response"
	case VerificationMismatch:
		return "verification mismatch"
	case Configuration:
		return "configuration error"
	default:
		return "unknown error"
	}
}

// Error is a classified failure. Index and Stage are filled in by the
// orchestrator once the failure is attributed to a (date, type) iteration.
type Error struct {
	Kind  Kind
	Index string
	Stage string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Index != "" {
		msg = e.Index + " - " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against a kind sentinel such as ErrMalformedResponse.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Err == nil && t.Index == "" && t.Stage == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidDateFormat    = &Error{Kind: InvalidDateFormat}
	ErrTemplateNotFound     = &Error{Kind: TemplateNotFound}
	ErrSystemInvocation     = &Error{Kind: SystemInvocation}
	ErrMalformedResponse    = &Error{Kind: MalformedResponse}
	ErrVerificationMismatch = &Error{Kind: VerificationMismatch}
	ErrConfiguration        = &Error{Kind: Configuration}
)

// New creates a classified error from a message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Attribute returns err with the index and stage recorded. Unclassified
// errors are returned as-is wrapped in an Error of kind Unknown so that the
// context still reaches the log line.
func Attribute(err error, index, stage string) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		cp := *fe
		cp.Index = index
		cp.Stage = stage
		return &cp
	}
	return &Error{Kind: Unknown, Index: index, Stage: stage, Err: err}
}
