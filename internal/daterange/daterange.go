// Package daterange expands operator-supplied date bounds into the calendar
// days an index family is partitioned by.
package daterange

import (
	"time"

	"github.com/phospodka/reindexer/internal/failure"
)

// Layout is the index suffix date format (yyyy.mm.dd).
const Layout = "2006.01.02"

// Parse parses a single yyyy.mm.dd date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, failure.New(failure.InvalidDateFormat, "%q is not a yyyy.mm.dd date", s)
	}
	return t, nil
}

// Expand returns every date from start to end inclusive, formatted with
// Layout. An inverted range yields an empty slice and no error.
func Expand(start, end string) ([]string, error) {
	from, err := Parse(start)
	if err != nil {
		return nil, err
	}
	to, err := Parse(end)
	if err != nil {
		return nil, err
	}

	dates := []string{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(Layout))
	}
	return dates, nil
}
