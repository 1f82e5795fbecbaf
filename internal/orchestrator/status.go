package orchestrator

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phospodka/reindexer/internal/checkpoint"
)

// ShowHistory lists all recorded runs, newest first.
func ShowHistory(w io.Writer, state checkpoint.StateBackend) error {
	runs, err := state.GetAllRuns()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No reindex history")
		return nil
	}

	fmt.Fprintf(w, "%-10s %-20s %-20s %-10s %-25s\n", "ID", "Started", "Completed", "Status", "Range")
	fmt.Fprintln(w, strings.Repeat("-", 88))

	for _, r := range runs {
		completed := "-"
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-10s %-20s %-20s %-10s %-25s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), completed, r.Status, r.StartDate+" - "+r.EndDate)
		if r.Error != "" {
			fmt.Fprintf(w, "           Error: %s\n", r.Error)
		}
	}

	fmt.Fprintln(w, "\nUse 'history --run <ID>' to view the indices of a run")
	return nil
}

// ShowRunDetails prints one run and the outcome of each of its iterations.
func ShowRunDetails(w io.Writer, state checkpoint.StateBackend, runID string) error {
	run, err := state.GetRunByID(runID)
	if err != nil {
		return fmt.Errorf("getting run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}

	fmt.Fprintf(w, "Run ID:     %s\n", run.ID)
	fmt.Fprintf(w, "Status:     %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", run.Error)
	}
	fmt.Fprintf(w, "Range:      %s - %s\n", run.StartDate, run.EndDate)
	fmt.Fprintf(w, "Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:  %s\n", run.CompletedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Duration:   %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Second))
	}

	tasks, err := state.GetRunTasks(run.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, "\nNo indices recorded")
		return nil
	}

	fmt.Fprintf(w, "\n%-30s %-10s %-16s %-20s %s\n", "Index", "Status", "Stage", "Counts", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, t := range tasks {
		statusIcon := ""
		switch t.Status {
		case TaskDone:
			statusIcon = "✓"
		case TaskHalted:
			statusIcon = "✗"
		case TaskSkipped:
			statusIcon = "○"
		}

		counts := ""
		if t.CountBefore > 0 || t.CountAfter > 0 {
			counts = fmt.Sprintf("%d/%d", t.CountBefore, t.CountAfter)
		}

		detail := t.Detail
		if len(detail) > 40 {
			detail = detail[:37] + "..."
		}

		fmt.Fprintf(w, "%-30s %s %-8s %-16s %-20s %s\n",
			t.SourceIndex, statusIcon, t.Status, t.Stage, counts, detail)
	}

	return nil
}

// BuildRunResult rebuilds a RunResult from recorded history.
func BuildRunResult(state checkpoint.StateBackend, runID string) (*RunResult, error) {
	run, err := state.GetRunByID(runID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", runID)
	}

	tasks, err := state.GetRunTasks(run.ID)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:     run.ID,
		Status:    run.Status,
		StartedAt: run.StartedAt,
		StartDate: run.StartDate,
		EndDate:   run.EndDate,
		Error:     run.Error,
		Dates:     []DateResult{},
	}
	if run.CompletedAt != nil && !run.CompletedAt.IsZero() {
		result.CompletedAt = *run.CompletedAt
		result.DurationSeconds = run.CompletedAt.Sub(run.StartedAt).Seconds()
	} else if run.Status == checkpoint.StatusRunning {
		result.DurationSeconds = time.Since(run.StartedAt).Seconds()
	}

	// tasks come back in recording order, so dates are already ascending
	var current *DateResult
	for _, t := range tasks {
		if current == nil || current.Date != t.Date {
			if current != nil {
				result.add(*current)
			}
			current = &DateResult{Date: t.Date, Tasks: []TaskResult{}}
		}
		tr := TaskResult{
			Type:          t.Type,
			SourceIndex:   t.SourceIndex,
			DestIndex:     t.DestIndex,
			Status:        t.Status,
			Stage:         Stage(t.Stage),
			CountBefore:   t.CountBefore,
			CountAfter:    t.CountAfter,
			SnapshotState: t.SnapshotState,
		}
		switch t.Status {
		case TaskHalted:
			tr.Error = t.Detail
			current.Halted = true
		case TaskSkipped:
			tr.Reason = t.Detail
		}
		current.Tasks = append(current.Tasks, tr)
		result.LastSuccess = t.Status == TaskDone
	}
	if current != nil {
		result.add(*current)
	}

	return result, nil
}
