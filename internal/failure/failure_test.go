package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, Unknown},
		{"plain", errors.New("boom"), Unknown},
		{"direct", New(MalformedResponse, "no count"), MalformedResponse},
		{"wrapped", fmt.Errorf("counting: %w", New(SystemInvocation, "exit 1")), SystemInvocation},
		{"attributed", Attribute(New(TemplateNotFound, "x"), "logstash-2024.03.01", "check_source"), TemplateNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsIs(t *testing.T) {
	err := fmt.Errorf("stage: %w", New(VerificationMismatch, "before=1 after=2"))
	if !errors.Is(err, ErrVerificationMismatch) {
		t.Error("expected errors.Is to match VerificationMismatch sentinel")
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Error("did not expect MalformedResponse match")
	}
}

func TestErrorMessageCarriesContext(t *testing.T) {
	err := Attribute(New(MalformedResponse, "missing count field"), "logstash-2024.03.01", "count_before")
	want := "logstash-2024.03.01 - count_before: malformed response: missing count field"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAttributeDoesNotMutateOriginal(t *testing.T) {
	orig := New(Configuration, "source_host is not set")
	_ = Attribute(orig, "idx", "check_source")
	if orig.Index != "" || orig.Stage != "" {
		t.Errorf("original mutated: %+v", orig)
	}
}
