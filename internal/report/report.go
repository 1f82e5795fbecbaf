// Package report renders the end-of-run summary shown on a terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/phospodka/reindexer/internal/orchestrator"
)

var (
	colorPurple    = lipgloss.Color("#7D56F4")
	colorGreen     = lipgloss.Color("#04B575")
	colorRed       = lipgloss.Color("#FF4141")
	colorYellow    = lipgloss.Color("#E5C07B")
	colorLightGray = lipgloss.Color("#9e9e9e")

	styleTitle = lipgloss.NewStyle().
			Foreground(colorPurple).
			Bold(true).
			MarginBottom(1)

	styleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPurple).
			Padding(0, 1)

	styleDone = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	styleHalted = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	styleSkipped = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorLightGray)
)

// Render returns a boxed summary of a run: one line per attempted index and
// the run totals.
func Render(r *orchestrator.RunResult) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render(fmt.Sprintf("Reindex run %s (%s - %s)", r.RunID, r.StartDate, r.EndDate)))
	b.WriteString("\n")

	for _, d := range r.Dates {
		for _, t := range d.Tasks {
			b.WriteString(fmt.Sprintf("%s %-32s %s\n", statusBadge(t.Status), t.SourceIndex, detail(t)))
		}
	}
	if len(r.Dates) == 0 {
		b.WriteString(styleMuted.Render("no dates processed"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s  %s  %s  %s",
		styleDone.Render(fmt.Sprintf("%d done", r.Done)),
		styleSkipped.Render(fmt.Sprintf("%d skipped", r.Skipped)),
		styleHalted.Render(fmt.Sprintf("%d halted", r.Halted)),
		styleMuted.Render(fmt.Sprintf("in %s", (time.Duration(r.DurationSeconds*float64(time.Second))).Round(time.Second))),
	))

	return styleBox.Render(b.String())
}

func statusBadge(status string) string {
	switch status {
	case orchestrator.TaskDone:
		return styleDone.Render("✓ done   ")
	case orchestrator.TaskHalted:
		return styleHalted.Render("✗ halted ")
	default:
		return styleSkipped.Render("○ skipped")
	}
}

func detail(t orchestrator.TaskResult) string {
	switch t.Status {
	case orchestrator.TaskDone:
		s := fmt.Sprintf("%d docs", t.CountAfter)
		if t.SnapshotState != "" {
			s += ", snapshot " + t.SnapshotState
		}
		return styleMuted.Render(s)
	case orchestrator.TaskHalted:
		return styleHalted.Render(string(t.Stage)) + " " + styleMuted.Render(t.Error)
	default:
		return styleMuted.Render(t.Reason)
	}
}
