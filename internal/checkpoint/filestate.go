package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// FileState implements StateBackend using a single YAML file.
// Designed for cron hosts and containers where SQLite is impractical.
type FileState struct {
	path  string
	mu    sync.RWMutex
	state *fileStateData
}

// fileStateData is the YAML structure for the state file.
type fileStateData struct {
	Runs []fileRun `yaml:"runs"`
}

type fileRun struct {
	RunID       string     `yaml:"run_id"`
	StartedAt   time.Time  `yaml:"started_at"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty"`
	Status      string     `yaml:"status"`
	StartDate   string     `yaml:"start_date"`
	EndDate     string     `yaml:"end_date"`
	ConfigHash  string     `yaml:"config_hash,omitempty"`
	Error       string     `yaml:"error,omitempty"`
	Tasks       []fileTask `yaml:"tasks,omitempty"`
}

type fileTask struct {
	Date          string    `yaml:"date"`
	Type          string    `yaml:"type"`
	SourceIndex   string    `yaml:"source_index"`
	DestIndex     string    `yaml:"dest_index"`
	Status        string    `yaml:"status"`
	Stage         string    `yaml:"stage,omitempty"`
	Detail        string    `yaml:"detail,omitempty"`
	CountBefore   int64     `yaml:"count_before,omitempty"`
	CountAfter    int64     `yaml:"count_after,omitempty"`
	SnapshotState string    `yaml:"snapshot_state,omitempty"`
	RecordedAt    time.Time `yaml:"recorded_at"`
}

// NewFileState creates a file-based history store.
// If the file exists, it loads the existing history.
func NewFileState(path string) (*FileState, error) {
	fs := &FileState{
		path:  path,
		state: &fileStateData{},
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading state file: %w", err)
		}
		if err := yaml.Unmarshal(data, fs.state); err != nil {
			return nil, fmt.Errorf("parsing state file: %w", err)
		}
	}

	return fs, nil
}

// save writes the current history to the YAML file.
func (fs *FileState) save() error {
	data, err := yaml.Marshal(fs.state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	if err := os.WriteFile(fs.path, data, 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

func (fs *FileState) find(id string) *fileRun {
	for i := range fs.state.Runs {
		if fs.state.Runs[i].RunID == id {
			return &fs.state.Runs[i]
		}
	}
	return nil
}

// CreateRun records the start of a run.
func (fs *FileState) CreateRun(id, startDate, endDate string, config any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.find(id) != nil {
		return fmt.Errorf("run %s already exists in state file", id)
	}

	configJSON, _ := json.Marshal(config)
	hash := sha256.Sum256(configJSON)

	fs.state.Runs = append(fs.state.Runs, fileRun{
		RunID:      id,
		StartedAt:  time.Now(),
		Status:     StatusRunning,
		StartDate:  startDate,
		EndDate:    endDate,
		ConfigHash: hex.EncodeToString(hash[:8]),
	})

	return fs.save()
}

// RecordTask appends one iteration outcome to a run.
func (fs *FileState) RecordTask(runID string, rec TaskRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	run := fs.find(runID)
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	run.Tasks = append(run.Tasks, fileTask{
		Date:          rec.Date,
		Type:          rec.Type,
		SourceIndex:   rec.SourceIndex,
		DestIndex:     rec.DestIndex,
		Status:        rec.Status,
		Stage:         rec.Stage,
		Detail:        rec.Detail,
		CountBefore:   rec.CountBefore,
		CountAfter:    rec.CountAfter,
		SnapshotState: rec.SnapshotState,
		RecordedAt:    rec.RecordedAt,
	})

	return fs.save()
}

// CompleteRun marks the run as finished.
func (fs *FileState) CompleteRun(id, status, errorMsg string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	run := fs.find(id)
	if run == nil {
		return fmt.Errorf("run not found: %s", id)
	}

	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	run.Error = errorMsg

	return fs.save()
}

// GetAllRuns returns every run, most recent first.
func (fs *FileState) GetAllRuns() ([]Run, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	runs := make([]Run, 0, len(fs.state.Runs))
	for _, r := range fs.state.Runs {
		runs = append(runs, r.toRun())
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

// GetRunByID returns a run, or nil if it does not exist.
func (fs *FileState) GetRunByID(runID string) (*Run, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	r := fs.find(runID)
	if r == nil {
		return nil, nil
	}
	run := r.toRun()
	return &run, nil
}

// GetRunTasks returns the recorded iterations of a run in execution order.
func (fs *FileState) GetRunTasks(runID string) ([]TaskRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	r := fs.find(runID)
	if r == nil {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	tasks := make([]TaskRecord, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		tasks = append(tasks, TaskRecord{
			Date:          t.Date,
			Type:          t.Type,
			SourceIndex:   t.SourceIndex,
			DestIndex:     t.DestIndex,
			Status:        t.Status,
			Stage:         t.Stage,
			Detail:        t.Detail,
			CountBefore:   t.CountBefore,
			CountAfter:    t.CountAfter,
			SnapshotState: t.SnapshotState,
			RecordedAt:    t.RecordedAt,
		})
	}
	return tasks, nil
}

// Close is a no-op; every mutation is already on disk.
func (fs *FileState) Close() error {
	return nil
}

func (r fileRun) toRun() Run {
	return Run{
		ID:          r.RunID,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		Status:      r.Status,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Config:      r.ConfigHash,
		Error:       r.Error,
	}
}
