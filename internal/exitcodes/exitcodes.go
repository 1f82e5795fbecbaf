// Package exitcodes defines the process exit codes of the reindexer CLI so
// that cron jobs and schedulers can tell usage mistakes from halted dates.
package exitcodes

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/phospodka/reindexer/internal/failure"
)

const (
	// Success - every date in the range was attempted
	Success = 0

	// ConfigError - properties/YAML parsing errors or missing required keys
	ConfigError = 1

	// UsageError - unknown flag or unparseable date bound
	UsageError = 2

	// MissingDates - start or end date not supplied
	MissingDates = 3

	// HaltError - a stage halted a date (only with --fail-on-halt)
	HaltError = 4

	// Cancelled - user cancelled via SIGINT/SIGTERM
	Cancelled = 5

	// StateError - run history could not be opened or written
	StateError = 6

	// IOError - file I/O errors
	IOError = 7
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// FromError determines the appropriate exit code for an error.
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	if errors.Is(err, context.Canceled) {
		return Cancelled
	}

	switch failure.KindOf(err) {
	case failure.InvalidDateFormat:
		return UsageError
	case failure.Configuration, failure.TemplateNotFound:
		return ConfigError
	case failure.SystemInvocation, failure.MalformedResponse, failure.VerificationMismatch:
		return HaltError
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return IOError
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, []string{
		"no such file",
		"file not found",
		"permission denied",
		"is a directory",
		"not a directory",
	}) {
		return IOError
	}

	if containsAny(errStr, []string{
		"flag provided but not defined",
		"incorrect usage",
	}) {
		return UsageError
	}

	if containsAny(errStr, []string{
		"yaml:",
		"unmarshal",
		"invalid config",
		"parsing config",
		"parsing properties",
		"is required",
	}) {
		return ConfigError
	}

	if containsAny(errStr, []string{
		"cancel",
		"interrupt",
	}) {
		return Cancelled
	}

	if containsAny(errStr, []string{
		"state",
		"history",
		"run not found",
		"sqlite",
	}) {
		return StateError
	}

	return HaltError
}

// Description returns a human-readable description of the exit code.
func Description(code int) string {
	switch code {
	case Success:
		return "success"
	case ConfigError:
		return "configuration error"
	case UsageError:
		return "usage error"
	case MissingDates:
		return "missing start or end date"
	case HaltError:
		return "halted"
	case Cancelled:
		return "cancelled"
	case StateError:
		return "state error"
	case IOError:
		return "I/O error"
	default:
		return "unknown error"
	}
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
