package exitcodes

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/phospodka/reindexer/internal/failure"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, Success},
		{"invalid date", failure.New(failure.InvalidDateFormat, "bad"), UsageError},
		{"missing property", fmt.Errorf("loading: %w", failure.New(failure.Configuration, "dest_host is not set")), ConfigError},
		{"missing template", failure.New(failure.TemplateNotFound, "templates/x.template"), ConfigError},
		{"count mismatch", failure.New(failure.VerificationMismatch, "100 != 99"), HaltError},
		{"path error", &os.PathError{Op: "open", Path: "/foo", Err: errors.New("no such file")}, IOError},
		{"yaml parse error", errors.New("parsing config: yaml: unmarshal error"), ConfigError},
		{"unknown flag", errors.New("flag provided but not defined: -x"), UsageError},
		{"context canceled", fmt.Errorf("run: %w", context.Canceled), Cancelled},
		{"history error", errors.New("opening history database: sqlite locked"), StateError},
		{"unknown error", errors.New("something unexpected happened"), HaltError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err)
			if got != tt.expected {
				t.Errorf("FromError(%v) = %d (%s), want %d (%s)",
					tt.err, got, Description(got), tt.expected, Description(tt.expected))
			}
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("both start and end date must be provided")
	exitErr := NewExitError(inner, MissingDates)

	if exitErr.Code != MissingDates {
		t.Errorf("expected code %d, got %d", MissingDates, exitErr.Code)
	}

	if exitErr.Error() != inner.Error() {
		t.Errorf("expected error message %q, got %q", inner.Error(), exitErr.Error())
	}

	if errors.Unwrap(exitErr) != inner {
		t.Error("Unwrap should return inner error")
	}

	if FromError(fmt.Errorf("wrapped: %w", exitErr)) != MissingDates {
		t.Errorf("FromError should extract code from ExitError")
	}
}

func TestDescription(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{Success, "success"},
		{ConfigError, "configuration error"},
		{UsageError, "usage error"},
		{MissingDates, "missing start or end date"},
		{HaltError, "halted"},
		{Cancelled, "cancelled"},
		{StateError, "state error"},
		{IOError, "I/O error"},
		{99, "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := Description(tt.code)
			if got != tt.expected {
				t.Errorf("Description(%d) = %q, want %q", tt.code, got, tt.expected)
			}
		})
	}
}
