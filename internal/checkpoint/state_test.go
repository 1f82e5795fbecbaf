package checkpoint

import (
	"testing"
	"time"
)

func TestState_RunLifecycle(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if err := s.CreateRun("a1", "2024.03.01", "2024.03.02", map[string]int{"delay": 10}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	// Ensure distinct started_at ordering
	time.Sleep(2 * time.Millisecond)
	if err := s.CreateRun("b2", "2024.04.01", "2024.04.01", nil); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	rec := TaskRecord{
		Date:        "2024.03.01",
		Type:        "logs",
		SourceIndex: "logstash-2024.03.01",
		DestIndex:   "logstash-2024.03.01",
		Status:      "halted",
		Stage:       "compare_counts",
		Detail:      "before=100 after=99",
		CountBefore: 100,
		CountAfter:  99,
	}
	if err := s.RecordTask("a1", rec); err != nil {
		t.Fatalf("RecordTask: %v", err)
	}
	if err := s.CompleteRun("a1", StatusHalted, ""); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	runs, err := s.GetAllRuns()
	if err != nil {
		t.Fatalf("GetAllRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "b2" {
		t.Errorf("runs[0] = %s, want most recent run b2", runs[0].ID)
	}

	run, err := s.GetRunByID("a1")
	if err != nil {
		t.Fatalf("GetRunByID: %v", err)
	}
	if run.Status != StatusHalted || run.CompletedAt == nil {
		t.Errorf("run = %+v, want halted and completed", run)
	}
	if run.Config != `{"delay":10}` {
		t.Errorf("config = %q", run.Config)
	}

	tasks, err := s.GetRunTasks("a1")
	if err != nil {
		t.Fatalf("GetRunTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	got := tasks[0]
	if got.Stage != "compare_counts" || got.CountBefore != 100 || got.CountAfter != 99 {
		t.Errorf("task = %+v", got)
	}
	if got.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be set")
	}
}

func TestState_MissingRun(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	run, err := s.GetRunByID("nope")
	if err != nil || run != nil {
		t.Errorf("GetRunByID = %v, %v; want nil, nil", run, err)
	}
	if err := s.CompleteRun("nope", StatusSuccess, ""); err == nil {
		t.Error("expected error completing unknown run")
	}
}
