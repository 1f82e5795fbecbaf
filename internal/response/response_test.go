package response

import (
	"errors"
	"testing"

	"github.com/phospodka/reindexer/internal/failure"
)

func TestStatus(t *testing.T) {
	code, err := Status("HTTP/1.1 404 Not Found\n")
	if err != nil || code != 404 {
		t.Fatalf("Status() = %d, %v; want 404, nil", code, err)
	}

	_, err = Status("curl: (7) Failed to connect to localhost port 9200")
	if !errors.Is(err, failure.ErrMalformedResponse) {
		t.Errorf("expected MalformedResponse, got %v", err)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    int64
		wantErr bool
	}{
		{"count object", `{"count":100,"_shards":{"total":5}}`, 100, false},
		{"trailing newline", "{\"count\": 0}\n", 0, false},
		{"large", `{"count":9007199254740993}`, 9007199254740993, false},
		{"missing field", `{"error":"index_not_found_exception"}`, 0, true},
		{"not json", "curl: (7) Failed to connect", 0, true},
		{"empty", "", 0, true},
		{"non-numeric count", `{"count":"many"}`, 0, true},
		{"fractional count", `{"count":1.5}`, 0, true},
		{"array", `[{"count":1}]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Count(tt.out)
			if tt.wantErr {
				if !errors.Is(err, failure.ErrMalformedResponse) {
					t.Fatalf("Count() error = %v, want MalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Count() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSnapshotState(t *testing.T) {
	got, err := SnapshotState(`{"snapshot":{"snapshot":"logstash-2024.03.01","state":"SUCCESS"}}`)
	if err != nil {
		t.Fatalf("SnapshotState() error: %v", err)
	}
	if got != "SUCCESS" {
		t.Errorf("SnapshotState() = %q, want SUCCESS", got)
	}

	for _, out := range []string{`{"accepted":true}`, `{"snapshot":{}}`, `not json`} {
		if _, err := SnapshotState(out); !errors.Is(err, failure.ErrMalformedResponse) {
			t.Errorf("SnapshotState(%q) error = %v, want MalformedResponse", out, err)
		}
	}
}

func TestContains(t *testing.T) {
	if !Contains("HTTP/1.1 404 Not Found\r\n", NotFound) {
		t.Error("expected 404 match")
	}
	if Contains("", NotFound) {
		t.Error("empty output must not match")
	}
	// Known weakness of the substring check.
	if !Contains("HTTP/1.1 404 Not Found\ncontent-length: 200\n", Found) {
		t.Error("substring check matches 200 inside a header value")
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		out    string
		want   int
		wantOK bool
	}{
		{"HTTP/1.1 200 OK\r\ncontent-type: application/json\r\n", 200, true},
		{"HTTP/2 404 \r\n", 404, true},
		{"HTTP/1.1 404 Not Found\ncontent-length: 200\n", 404, true},
		{"", 0, false},
		{"200", 0, false},
	}

	for _, tt := range tests {
		got, ok := StatusCode(tt.out)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("StatusCode(%q) = %d, %v; want %d, %v", tt.out, got, ok, tt.want, tt.wantOK)
		}
	}
}
