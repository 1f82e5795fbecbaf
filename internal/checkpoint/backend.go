package checkpoint

import "time"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusHalted    = "halted"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Run is one invocation of the reindexer over a date range.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string
	StartDate   string
	EndDate     string
	Config      string
	Error       string
}

// TaskRecord is the outcome of one (date, type) iteration.
type TaskRecord struct {
	Date          string
	Type          string
	SourceIndex   string
	DestIndex     string
	Status        string // done, skipped, halted
	Stage         string
	Detail        string
	CountBefore   int64
	CountAfter    int64
	SnapshotState string
	RecordedAt    time.Time
}

// StateBackend records run history. Implementations include SQLite (default)
// and a single YAML file for hosts where SQLite is impractical. History is an
// audit trail; it is never consulted to skip work.
type StateBackend interface {
	CreateRun(id, startDate, endDate string, config any) error
	RecordTask(runID string, rec TaskRecord) error
	CompleteRun(id, status, errorMsg string) error

	GetAllRuns() ([]Run, error)
	GetRunByID(runID string) (*Run, error)
	GetRunTasks(runID string) ([]TaskRecord, error)

	Close() error
}

// Ensure both backends implement StateBackend
var (
	_ StateBackend = (*State)(nil)
	_ StateBackend = (*FileState)(nil)
)
