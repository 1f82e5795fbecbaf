package checkpoint

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed-width so that lexical order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// State stores run history in SQLite
type State struct {
	db *sql.DB
}

// New opens (or creates) the history database in dataDir
func New(dataDir string) (*State, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &State{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}

	return s, nil
}

func (s *State) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		completed_at TEXT,
		status TEXT NOT NULL DEFAULT 'running',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		config TEXT,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		date TEXT NOT NULL,
		index_type TEXT NOT NULL,
		source_index TEXT NOT NULL,
		dest_index TEXT NOT NULL,
		status TEXT NOT NULL,
		stage TEXT,
		detail TEXT,
		count_before INTEGER,
		count_after INTEGER,
		snapshot_state TEXT,
		recorded_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_run ON tasks(run_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_source_index ON tasks(source_index);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *State) Close() error {
	return s.db.Close()
}

// CreateRun records the start of a run
func (s *State) CreateRun(id, startDate, endDate string, config any) error {
	configJSON, _ := json.Marshal(config)
	_, err := s.db.Exec(`
		INSERT INTO runs (id, started_at, status, start_date, end_date, config)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, time.Now().UTC().Format(timeLayout), StatusRunning, startDate, endDate, string(configJSON))
	return err
}

// RecordTask appends one iteration outcome to a run
func (s *State) RecordTask(runID string, rec TaskRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (run_id, date, index_type, source_index, dest_index, status, stage,
			detail, count_before, count_after, snapshot_state, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, rec.Date, rec.Type, rec.SourceIndex, rec.DestIndex, rec.Status, rec.Stage,
		rec.Detail, rec.CountBefore, rec.CountAfter, rec.SnapshotState,
		rec.RecordedAt.UTC().Format(timeLayout))
	return err
}

// CompleteRun marks a run as finished
func (s *State) CompleteRun(id, status, errorMsg string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ?
	`, status, time.Now().UTC().Format(timeLayout), errorMsg, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetAllRuns returns every run, most recent first
func (s *State) GetAllRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, completed_at, status, start_date, end_date, config, error_message
		FROM runs ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunByID returns a run, or nil if it does not exist
func (s *State) GetRunByID(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, completed_at, status, start_date, end_date, config, error_message
		FROM runs WHERE id = ?
	`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetRunTasks returns the recorded iterations of a run in execution order
func (s *State) GetRunTasks(runID string) ([]TaskRecord, error) {
	rows, err := s.db.Query(`
		SELECT date, index_type, source_index, dest_index, status, stage, detail,
			count_before, count_after, snapshot_state, recorded_at
		FROM tasks WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []TaskRecord
	for rows.Next() {
		var rec TaskRecord
		var stage, detail, snapshot sql.NullString
		var before, after sql.NullInt64
		var recordedAt string
		if err := rows.Scan(&rec.Date, &rec.Type, &rec.SourceIndex, &rec.DestIndex, &rec.Status,
			&stage, &detail, &before, &after, &snapshot, &recordedAt); err != nil {
			return nil, err
		}
		rec.Stage = stage.String
		rec.Detail = detail.String
		rec.CountBefore = before.Int64
		rec.CountAfter = after.Int64
		rec.SnapshotState = snapshot.String
		rec.RecordedAt, _ = time.Parse(timeLayout, recordedAt)
		tasks = append(tasks, rec)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var startedAt string
	var completedAt, config, errMsg sql.NullString
	if err := row.Scan(&r.ID, &startedAt, &completedAt, &r.Status, &r.StartDate, &r.EndDate,
		&config, &errMsg); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeLayout, startedAt)
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err == nil {
			r.CompletedAt = &t
		}
	}
	r.Config = config.String
	r.Error = errMsg.String
	return &r, nil
}
