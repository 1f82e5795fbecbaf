package notify

import "time"

// Provider defines the notification contract for reindex run events.
type Provider interface {
	// RunStarted sends notification when a run starts.
	RunStarted(runID, startDate, endDate string, typeCount int) error

	// DateHalted sends notification when a stage halts the remaining types of a date.
	DateHalted(runID, date, index, stage string, err error) error

	// RunCompleted sends notification when every date in the range has been attempted.
	RunCompleted(runID string, startTime time.Time, duration time.Duration, done, skipped, halted int) error
}

// Ensure Notifier implements Provider
var _ Provider = (*Notifier)(nil)
