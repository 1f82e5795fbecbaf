package orchestrator

import "fmt"

// Stage names one step of the per-(date, type) state machine. Stages run in
// declaration order and each is attempted at most once per iteration.
type Stage string

const (
	StageCheckSource   Stage = "check_source"
	StageCheckDest     Stage = "check_dest"
	StageCountBefore   Stage = "count_before"
	StageTransfer      Stage = "transfer"
	StageSettle        Stage = "settle"
	StageCountAfter    Stage = "count_after"
	StageCompareCounts Stage = "compare_counts"
	StageSnapshot      Stage = "snapshot"
	StageDone          Stage = "done"
)

// Task is one (date, type) iteration.
type Task struct {
	Type        string
	Date        string
	SourceIndex string
	DestIndex   string
}

type outcomeKind int

const (
	proceed outcomeKind = iota
	skip
	fail
)

// Outcome is the result of a single stage.
type Outcome struct {
	kind   outcomeKind
	Value  int64
	Reason string
	Err    error
}

// Proceed continues to the next stage, carrying an optional value (a count).
func Proceed(value int64) Outcome {
	return Outcome{kind: proceed, Value: value}
}

// Skip ends the current type without halting the date.
func Skip(reason string) Outcome {
	return Outcome{kind: skip, Reason: reason}
}

// Fail halts the remaining types of the current date.
func Fail(err error) Outcome {
	return Outcome{kind: fail, Err: err}
}

func (o Outcome) Proceeded() bool { return o.kind == proceed }
func (o Outcome) Skipped() bool   { return o.kind == skip }
func (o Outcome) Failed() bool    { return o.kind == fail }

func (o Outcome) String() string {
	switch o.kind {
	case skip:
		return "skip: " + o.Reason
	case fail:
		return fmt.Sprintf("fail: %v", o.Err)
	default:
		return fmt.Sprintf("proceed: %d", o.Value)
	}
}
