package orchestrator

import (
	"errors"

	"github.com/phospodka/reindexer/internal/daterange"
	"github.com/phospodka/reindexer/internal/failure"
	"github.com/phospodka/reindexer/internal/logging"
	"github.com/phospodka/reindexer/internal/templates"
)

// CheckResult previews a run without executing any command.
type CheckResult struct {
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	Dates       []string      `json:"dates"`
	Types       []string      `json:"types"`
	SettleDelay int           `json:"settle_delay"`
	Snapshot    bool          `json:"snapshot"`
	Iterations  []CheckedTask `json:"iterations"`
	Problems    int           `json:"problems"`
}

// CheckedTask lists the problems found for one (date, type).
type CheckedTask struct {
	Date        string   `json:"date"`
	Type        string   `json:"type"`
	SourceIndex string   `json:"source_index"`
	DestIndex   string   `json:"dest_index"`
	Missing     []string `json:"missing_templates,omitempty"`
	Unresolved  []string `json:"unresolved,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// OK reports whether every template resolved cleanly.
func (c CheckedTask) OK() bool {
	return len(c.Missing) == 0 && len(c.Unresolved) == 0 && len(c.Errors) == 0
}

// Check resolves every template a run would use for every (date, type),
// reporting missing templates, unresolved placeholders and configuration
// errors. No command is executed.
func (o *Orchestrator) Check(start, end string) (*CheckResult, error) {
	logging.Info("Performing dry run (no commands will be executed)...")

	dates, err := daterange.Expand(start, end)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{
		StartDate:   start,
		EndDate:     end,
		Dates:       dates,
		SettleDelay: o.config.Reindex.SettleDelay,
		Snapshot:    o.config.Reindex.Snapshot,
		Iterations:  []CheckedTask{},
	}
	for _, it := range o.config.Types {
		result.Types = append(result.Types, it.Name)
	}

	for _, date := range dates {
		for _, it := range o.config.Types {
			ct := CheckedTask{
				Date:        date,
				Type:        it.Name,
				SourceIndex: it.SourceIndex(date),
				DestIndex:   it.DestIndex(date),
			}
			o.props.SetFlux(it.Name, ct.SourceIndex, ct.DestIndex, date)

			o.checkTemplate(&ct, o.props.UseSource, o.config.Templates.CheckIndex)
			o.checkTemplate(&ct, o.props.UseDest, o.config.Templates.CheckIndex)
			o.checkTemplate(&ct, o.props.UseSource, o.config.Templates.CountIndex)
			o.checkTemplate(&ct, nil, o.config.Templates.Transfer)
			o.checkTemplate(&ct, o.props.UseDest, o.config.Templates.CountIndex)
			if o.config.Reindex.Snapshot {
				o.checkTemplate(&ct, nil, o.config.Templates.Snapshot)
			}
			if _, err := o.transferExecutable(); err != nil {
				ct.Errors = appendUnique(ct.Errors, err.Error())
			}

			if !ct.OK() {
				result.Problems++
			}
			result.Iterations = append(result.Iterations, ct)
		}
	}

	return result, nil
}

func (o *Orchestrator) checkTemplate(ct *CheckedTask, point func() error, name string) {
	if point != nil {
		if err := point(); err != nil {
			ct.Errors = appendUnique(ct.Errors, err.Error())
			return
		}
	}
	text, err := o.resolver.Resolve(name, o.props)
	if err != nil {
		if errors.Is(err, failure.ErrTemplateNotFound) {
			ct.Missing = appendUnique(ct.Missing, name)
		} else {
			ct.Errors = appendUnique(ct.Errors, err.Error())
		}
		return
	}
	for _, p := range templates.Unresolved(text) {
		ct.Unresolved = appendUnique(ct.Unresolved, name+": "+p)
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
