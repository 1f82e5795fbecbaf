package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phospodka/reindexer/internal/checkpoint"
	"github.com/phospodka/reindexer/internal/command"
	"github.com/phospodka/reindexer/internal/config"
	"github.com/phospodka/reindexer/internal/daterange"
	"github.com/phospodka/reindexer/internal/failure"
	"github.com/phospodka/reindexer/internal/logging"
	"github.com/phospodka/reindexer/internal/notify"
	"github.com/phospodka/reindexer/internal/progress"
	"github.com/phospodka/reindexer/internal/props"
	"github.com/phospodka/reindexer/internal/response"
	"github.com/phospodka/reindexer/internal/templates"
)

// Resolver turns a named template into command text.
type Resolver interface {
	Resolve(name string, p *props.PropertySet) (string, error)
}

// Runner executes resolved command text.
type Runner interface {
	Run(commandLine string) (*command.Result, error)
	RunTransfer(executable, script string) (*command.Result, error)
}

// Orchestrator walks a date range one (date, type) at a time. It owns the
// run's PropertySet and is not safe for concurrent use.
type Orchestrator struct {
	config   *config.Config
	props    *props.PropertySet
	resolver Resolver
	runner   Runner
	state    checkpoint.StateBackend
	notifier notify.Provider
	progress *progress.Tracker
	sleep    func(time.Duration)

	// success reflects only the most recent (date, type) iteration
	success bool
}

// New creates an orchestrator. State, notifications and progress are off
// until set.
func New(cfg *config.Config, p *props.PropertySet, resolver Resolver, runner Runner) *Orchestrator {
	return &Orchestrator{
		config:   cfg,
		props:    p,
		resolver: resolver,
		runner:   runner,
		progress: progress.New(nil),
		sleep:    time.Sleep,
	}
}

// SetState records run history to the given backend.
func (o *Orchestrator) SetState(state checkpoint.StateBackend) {
	o.state = state
}

// SetNotifier sends run events to the given provider.
func (o *Orchestrator) SetNotifier(n notify.Provider) {
	o.notifier = n
}

// SetProgress replaces the progress tracker.
func (o *Orchestrator) SetProgress(t *progress.Tracker) {
	if t == nil {
		t = progress.New(nil)
	}
	o.progress = t
}

// SetSleeper replaces the settle delay sleep, for tests.
func (o *Orchestrator) SetSleeper(sleep func(time.Duration)) {
	o.sleep = sleep
}

// Run processes every date from start to end inclusive. A halted date does
// not stop the run; the returned error is non-nil only when the range is
// invalid, history cannot be written, or ctx was cancelled.
func (o *Orchestrator) Run(ctx context.Context, start, end string) (*RunResult, error) {
	dates, err := daterange.Expand(start, end)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()[:8]
	result := &RunResult{
		RunID:     runID,
		StartedAt: time.Now(),
		StartDate: start,
		EndDate:   end,
	}

	if o.state != nil {
		if err := o.state.CreateRun(runID, start, end, o.config.Sanitized()); err != nil {
			return nil, fmt.Errorf("creating run history: %w", err)
		}
	}
	if o.notifier != nil {
		if err := o.notifier.RunStarted(runID, start, end, len(o.config.Types)); err != nil {
			logging.Warn("sending start notification: %v", err)
		}
	}

	logging.Info("date range - %s", strings.Join(dates, ", "))
	o.progress.SetTotal(len(dates) * len(o.config.Types))

	o.success = false
	var runErr error
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		dr, err := o.processDate(ctx, runID, date)
		result.add(dr)
		if err != nil {
			runErr = err
			break
		}
	}
	o.progress.Finish()

	if o.success {
		logging.Info("date range - finished")
	}

	status := checkpoint.StatusSuccess
	switch {
	case runErr != nil:
		status = checkpoint.StatusCancelled
		result.Error = runErr.Error()
		logging.Warn("run cancelled: %v", runErr)
	case result.Halted > 0:
		status = checkpoint.StatusHalted
	}
	result.finish(status, o.success)

	if o.state != nil {
		if err := o.state.CompleteRun(runID, status, result.Error); err != nil {
			logging.Warn("completing run history: %v", err)
		}
	}
	if o.notifier != nil {
		err := o.notifier.RunCompleted(runID, result.StartedAt, result.CompletedAt.Sub(result.StartedAt),
			result.Done, result.Skipped, result.Halted)
		if err != nil {
			logging.Warn("sending completion notification: %v", err)
		}
	}

	return result, runErr
}

// processDate runs every configured type for one date, stopping at the first
// halt. Cancellation is observed between types only.
func (o *Orchestrator) processDate(ctx context.Context, runID, date string) (DateResult, error) {
	dr := DateResult{Date: date, Tasks: []TaskResult{}}
	logging.Info("%s - started processing", date)

	for _, it := range o.config.Types {
		if err := ctx.Err(); err != nil {
			return dr, err
		}
		task := Task{
			Type:        it.Name,
			Date:        date,
			SourceIndex: it.SourceIndex(date),
			DestIndex:   it.DestIndex(date),
		}
		o.progress.Describe(task.SourceIndex)
		tr := o.processType(runID, task)
		o.progress.Step()
		dr.Tasks = append(dr.Tasks, tr)
		if tr.Status == TaskHalted {
			dr.Halted = true
			break
		}
	}

	logging.Info("%s - finished processing", date)
	return dr, nil
}

type stageFunc func(task Task, tr *TaskResult) Outcome

// processType walks the stages for one (date, type).
func (o *Orchestrator) processType(runID string, task Task) TaskResult {
	o.success = false
	o.props.SetFlux(task.Type, task.SourceIndex, task.DestIndex, task.Date)

	tr := TaskResult{
		Type:        task.Type,
		SourceIndex: task.SourceIndex,
		DestIndex:   task.DestIndex,
	}

	stages := []struct {
		stage Stage
		run   stageFunc
	}{
		{StageCheckSource, o.checkSource},
		{StageCheckDest, o.checkDest},
		{StageCountBefore, o.countBefore},
		{StageTransfer, o.transfer},
		{StageSettle, o.settle},
		{StageCountAfter, o.countAfter},
		{StageCompareCounts, o.compareCounts},
		{StageSnapshot, o.snapshot},
	}

	for _, s := range stages {
		tr.Stage = s.stage
		out := s.run(task, &tr)
		switch {
		case out.Skipped():
			logging.Warn("%s - skipping; %s", task.SourceIndex, out.Reason)
			tr.Status = TaskSkipped
			tr.Reason = out.Reason
			o.record(runID, task, tr)
			return tr
		case out.Failed():
			tr.Status = TaskHalted
			tr.Error = o.halt(runID, task, s.stage, out.Err).Error()
			o.record(runID, task, tr)
			return tr
		}
	}

	logging.Info("%s - finished processing index", task.SourceIndex)
	tr.Stage = StageDone
	tr.Status = TaskDone
	o.success = true
	o.record(runID, task, tr)
	return tr
}

// halt is the single failure path for every error kind.
func (o *Orchestrator) halt(runID string, task Task, stage Stage, err error) *failure.Error {
	ferr := failure.Attribute(err, task.SourceIndex, string(stage))
	logging.Error("%s", ferr)
	logging.Error("halting processing; see previous errors")
	if o.notifier != nil {
		if nerr := o.notifier.DateHalted(runID, task.Date, task.SourceIndex, string(stage), ferr); nerr != nil {
			logging.Warn("sending halt notification: %v", nerr)
		}
	}
	return ferr
}

func (o *Orchestrator) record(runID string, task Task, tr TaskResult) {
	if o.state == nil {
		return
	}
	rec := checkpoint.TaskRecord{
		Date:          task.Date,
		Type:          task.Type,
		SourceIndex:   task.SourceIndex,
		DestIndex:     task.DestIndex,
		Status:        tr.Status,
		Stage:         string(tr.Stage),
		Detail:        tr.Reason,
		CountBefore:   tr.CountBefore,
		CountAfter:    tr.CountAfter,
		SnapshotState: tr.SnapshotState,
		RecordedAt:    time.Now(),
	}
	if tr.Error != "" {
		rec.Detail = tr.Error
	}
	if err := o.state.RecordTask(runID, rec); err != nil {
		logging.Warn("recording %s in run history: %v", task.SourceIndex, err)
	}
}

func (o *Orchestrator) checkSource(task Task, _ *TaskResult) Outcome {
	missing, err := o.checkIndex(o.props.UseSource, response.NotFound, 404)
	if err != nil {
		return Fail(err)
	}
	if missing {
		return Skip(task.Type + " index not available")
	}
	return Proceed(0)
}

func (o *Orchestrator) checkDest(task Task, _ *TaskResult) Outcome {
	exists, err := o.checkIndex(o.props.UseDest, response.Found, 200)
	if err != nil {
		return Fail(err)
	}
	if exists {
		return Skip(task.Type + " already processed")
	}
	return Proceed(0)
}

func (o *Orchestrator) countBefore(task Task, tr *TaskResult) Outcome {
	n, err := o.count(task, o.props.UseSource, "count of "+task.Type+" to reindex")
	if err != nil {
		return Fail(err)
	}
	tr.CountBefore = n
	return Proceed(n)
}

func (o *Orchestrator) transfer(task Task, _ *TaskResult) Outcome {
	exe, err := o.transferExecutable()
	if err != nil {
		return Fail(err)
	}
	script, err := o.resolve(o.config.Templates.Transfer)
	if err != nil {
		return Fail(err)
	}

	logging.Info("%s - started reindex of %s with (this may take several minutes)", task.SourceIndex, task.Type)
	res, err := o.runner.RunTransfer(exe, script)
	if err != nil {
		return Fail(err)
	}
	logging.Debug("%s", res.Stdout)
	if !res.OK() {
		logging.Error("%s", strings.TrimSpace(res.Output()))
		return Fail(failure.New(failure.SystemInvocation, "error reindexing: %s exited with status %d", exe, res.ExitStatus))
	}
	logging.Info("%s - finished reindex of %s", task.SourceIndex, task.Type)
	return Proceed(0)
}

func (o *Orchestrator) settle(task Task, _ *TaskResult) Outcome {
	delay := o.config.Reindex.SettleDelay
	logging.Info("%s - pausing for %d seconds", task.SourceIndex, delay)
	o.sleep(time.Duration(delay) * time.Second)
	return Proceed(0)
}

func (o *Orchestrator) countAfter(task Task, tr *TaskResult) Outcome {
	n, err := o.count(task, o.props.UseDest, "count of "+task.Type+" reindexed")
	if err != nil {
		return Fail(err)
	}
	tr.CountAfter = n
	return Proceed(n)
}

func (o *Orchestrator) compareCounts(task Task, tr *TaskResult) Outcome {
	if tr.CountBefore != tr.CountAfter {
		return Fail(failure.New(failure.VerificationMismatch,
			"reindexed %s before and after counts do not match: %d != %d", task.Type, tr.CountBefore, tr.CountAfter))
	}
	return Proceed(tr.CountAfter)
}

func (o *Orchestrator) snapshot(task Task, tr *TaskResult) Outcome {
	if !o.config.Reindex.Snapshot {
		return Proceed(0)
	}
	// host and index still point at the destination from count_after
	res, err := o.runTemplate(o.config.Templates.Snapshot)
	if err != nil {
		return Fail(err)
	}
	state, err := response.SnapshotState(res.Stdout)
	if err != nil {
		logging.Error("%s - error create %s snapshot. response: %s", task.SourceIndex, task.Type, res.Stdout)
		return Fail(err)
	}
	logging.Info("%s - create %s snapshot: %s", task.SourceIndex, task.Type, state)
	tr.SnapshotState = state
	return Proceed(0)
}

// checkIndex points host/index with point, runs the existence check and
// reports whether the response matches token (or status in strict mode).
func (o *Orchestrator) checkIndex(point func() error, token string, status int) (bool, error) {
	if err := point(); err != nil {
		return false, err
	}
	res, err := o.runTemplate(o.config.Templates.CheckIndex)
	if err != nil {
		return false, err
	}
	if !res.OK() {
		logging.Error("%s", strings.TrimSpace(res.Stderr))
	}
	if o.config.Reindex.StrictStatus {
		code, err := response.Status(res.Stdout)
		if err != nil {
			return false, err
		}
		return code == status, nil
	}
	return response.Contains(res.Stdout, token), nil
}

func (o *Orchestrator) count(task Task, point func() error, message string) (int64, error) {
	if err := point(); err != nil {
		return 0, err
	}
	res, err := o.runTemplate(o.config.Templates.CountIndex)
	if err != nil {
		return 0, err
	}
	n, err := response.Count(res.Stdout)
	if err != nil {
		logging.Error("%s - error %s. response: %s", task.SourceIndex, message, res.Stdout)
		return 0, err
	}
	logging.Info("%s - %s: %d", task.SourceIndex, message, n)
	return n, nil
}

func (o *Orchestrator) resolve(name string) (string, error) {
	text, err := o.resolver.Resolve(name, o.props)
	if err != nil {
		return "", err
	}
	if missing := templates.Unresolved(text); len(missing) > 0 {
		logging.Warn("template %s has unresolved placeholders: %s", name, strings.Join(missing, ", "))
	}
	logging.Debug("%s", text)
	return text, nil
}

func (o *Orchestrator) runTemplate(name string) (*command.Result, error) {
	text, err := o.resolve(name)
	if err != nil {
		return nil, err
	}
	res, err := o.runner.Run(text)
	if err != nil {
		return nil, err
	}
	logging.Debug("%s", res.Stdout)
	return res, nil
}

// transferExecutable joins the tool's home directory property with the
// executable name.
func (o *Orchestrator) transferExecutable() (string, error) {
	home, ok := o.props.Get(o.config.Transfer.HomeProperty)
	if !ok {
		return "", failure.New(failure.Configuration, "%s is not set", o.config.Transfer.HomeProperty)
	}
	return filepath.Join(home, o.config.Transfer.Executable), nil
}
