package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Tracker shows one tick per (date, type) iteration. A Tracker created
// with a nil writer is a no-op.
type Tracker struct {
	bar       *progressbar.ProgressBar
	out       io.Writer
	total     int
	current   int
	startTime time.Time
}

// New creates a progress tracker that renders to out. Pass nil to disable.
func New(out io.Writer) *Tracker {
	return &Tracker{
		out:       out,
		startTime: time.Now(),
	}
}

// ForTerminal returns a tracker on stderr when stderr is a terminal, and a
// disabled tracker otherwise.
func ForTerminal() *Tracker {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return New(nil)
	}
	return New(os.Stderr)
}

// Enabled reports whether the tracker renders anything.
func (t *Tracker) Enabled() bool {
	return t.out != nil
}

// SetTotal sets the number of iterations in the run
func (t *Tracker) SetTotal(total int) {
	t.total = total
	if t.out == nil {
		return
	}
	t.bar = progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(t.out),
		progressbar.OptionSetDescription("Reindexing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetItsString("indices"),
		progressbar.OptionShowIts(),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { io.WriteString(t.out, "\n") }),
	)
}

// Describe labels the iteration in progress
func (t *Tracker) Describe(index string) {
	if t.bar != nil {
		t.bar.Describe(index)
	}
}

// Step marks one iteration finished
func (t *Tracker) Step() {
	t.current++
	if t.bar != nil {
		t.bar.Add(1)
	}
}

// Current returns the number of finished iterations
func (t *Tracker) Current() int {
	return t.current
}

// Finish completes the bar
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}
}

// Elapsed returns the time since the tracker was created
func (t *Tracker) Elapsed() time.Duration {
	return time.Since(t.startTime)
}
