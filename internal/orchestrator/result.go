package orchestrator

import "time"

// Task statuses recorded in results and history.
const (
	TaskDone    = "done"
	TaskSkipped = "skipped"
	TaskHalted  = "halted"
)

// RunResult summarizes one invocation over a date range. It is printed with
// --output-json and written with --output-file.
type RunResult struct {
	RunID           string       `json:"run_id"`
	Status          string       `json:"status"`
	StartedAt       time.Time    `json:"started_at"`
	CompletedAt     time.Time    `json:"completed_at"`
	DurationSeconds float64      `json:"duration_seconds"`
	StartDate       string       `json:"start_date"`
	EndDate         string       `json:"end_date"`
	Dates           []DateResult `json:"dates"`
	Done            int          `json:"done"`
	Skipped         int          `json:"skipped"`
	Halted          int          `json:"halted"`
	// LastSuccess is true only when the last processed (date, type) reached
	// done. It is not an aggregate over the run.
	LastSuccess bool   `json:"last_success"`
	Error       string `json:"error,omitempty"`
}

// DateResult holds the type results of one date in configured order. Types
// after a halt are not attempted and do not appear.
type DateResult struct {
	Date   string       `json:"date"`
	Halted bool         `json:"halted"`
	Tasks  []TaskResult `json:"tasks"`
}

// TaskResult is the outcome of one (date, type) iteration.
type TaskResult struct {
	Type          string `json:"type"`
	SourceIndex   string `json:"source_index"`
	DestIndex     string `json:"dest_index"`
	Status        string `json:"status"`
	Stage         Stage  `json:"stage"`
	Reason        string `json:"reason,omitempty"`
	Error         string `json:"error,omitempty"`
	CountBefore   int64  `json:"count_before,omitempty"`
	CountAfter    int64  `json:"count_after,omitempty"`
	SnapshotState string `json:"snapshot_state,omitempty"`
}

func (r *RunResult) add(dr DateResult) {
	r.Dates = append(r.Dates, dr)
	for _, t := range dr.Tasks {
		switch t.Status {
		case TaskDone:
			r.Done++
		case TaskSkipped:
			r.Skipped++
		case TaskHalted:
			r.Halted++
		}
	}
}

func (r *RunResult) finish(status string, success bool) {
	r.Status = status
	r.LastSuccess = success
	r.CompletedAt = time.Now()
	r.DurationSeconds = r.CompletedAt.Sub(r.StartedAt).Seconds()
	if r.Dates == nil {
		r.Dates = []DateResult{}
	}
}
