package report

import (
	"strings"
	"testing"

	"github.com/phospodka/reindexer/internal/orchestrator"
)

func TestRender(t *testing.T) {
	r := &orchestrator.RunResult{
		RunID:     "abc12345",
		StartDate: "2024.03.01",
		EndDate:   "2024.03.02",
		Dates: []orchestrator.DateResult{
			{Date: "2024.03.01", Tasks: []orchestrator.TaskResult{
				{SourceIndex: "logstash-2024.03.01", Status: orchestrator.TaskSkipped, Reason: "logs index not available"},
			}},
			{Date: "2024.03.02", Tasks: []orchestrator.TaskResult{
				{SourceIndex: "logstash-2024.03.02", Status: orchestrator.TaskDone, CountAfter: 100, SnapshotState: "SUCCESS"},
			}},
		},
		Done:            1,
		Skipped:         1,
		DurationSeconds: 12.4,
	}

	out := Render(r)
	for _, want := range []string{
		"abc12345",
		"logstash-2024.03.01",
		"logs index not available",
		"100 docs, snapshot SUCCESS",
		"1 done",
		"1 skipped",
		"0 halted",
		"12s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	out := Render(&orchestrator.RunResult{RunID: "empty"})
	if !strings.Contains(out, "no dates processed") {
		t.Errorf("Render() = %q, want empty notice", out)
	}
}
