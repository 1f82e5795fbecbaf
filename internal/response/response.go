// Package response interprets the text produced by store query commands.
//
// Existence checks are recognized by substring match on status tokens, which
// a count value or index name containing the token would also satisfy.
// StatusCode offers a stricter reading of an HTTP status line for callers
// that opt into it.
package response

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/phospodka/reindexer/internal/failure"
)

// Status tokens the existence checks look for.
const (
	NotFound = "404"
	Found    = "200"
)

var statusLineRe = regexp.MustCompile(`(?m)^HTTP/[0-9.]+\s+([0-9]{3})\b`)

// Contains reports whether token appears anywhere in out.
func Contains(out, token string) bool {
	return strings.Contains(out, token)
}

// StatusCode returns the code of the first HTTP status line in out.
func StatusCode(out string) (int, bool) {
	m := statusLineRe.FindStringSubmatch(out)
	if m == nil {
		return 0, false
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

// Status is StatusCode for callers that require a status line; output
// without one is a MalformedResponse.
func Status(out string) (int, error) {
	code, ok := StatusCode(out)
	if !ok {
		return 0, failure.New(failure.MalformedResponse, "no HTTP status line in %s", abbreviate(out))
	}
	return code, nil
}

// Count extracts the numeric "count" field of a JSON object.
func Count(out string) (int64, error) {
	var body struct {
		Count *json.Number `json:"count"`
	}
	if err := decode(out, &body); err != nil {
		return 0, err
	}
	if body.Count == nil {
		return 0, failure.New(failure.MalformedResponse, "missing count field in %s", abbreviate(out))
	}
	n, err := body.Count.Int64()
	if err != nil {
		return 0, failure.New(failure.MalformedResponse, "count %q is not an integer", body.Count.String())
	}
	return n, nil
}

// SnapshotState extracts the "snapshot.state" string of a JSON object.
func SnapshotState(out string) (string, error) {
	var body struct {
		Snapshot *struct {
			State *string `json:"state"`
		} `json:"snapshot"`
	}
	if err := decode(out, &body); err != nil {
		return "", err
	}
	if body.Snapshot == nil || body.Snapshot.State == nil {
		return "", failure.New(failure.MalformedResponse, "missing snapshot.state field in %s", abbreviate(out))
	}
	return *body.Snapshot.State, nil
}

func decode(out string, v any) error {
	trimmed := strings.TrimSpace(out)
	if !strings.HasPrefix(trimmed, "{") {
		return failure.New(failure.MalformedResponse, "expected a JSON object, got %s", abbreviate(out))
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return failure.New(failure.MalformedResponse, "decoding %s: %v", abbreviate(out), err)
	}
	return nil
}

func abbreviate(out string) string {
	const max = 200
	out = strings.TrimSpace(out)
	if out == "" {
		return "empty output"
	}
	if len(out) > max {
		return strconv.Quote(out[:max] + "...")
	}
	return strconv.Quote(out)
}
