package data

import (
	"strings"
	"time"
)

// FormatDate renders a date the way page titles show it: M/D/YYYY.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("1/2/2006")
}

// AsOf returns the latest Date of a table as M/D/YYYY, or "" when the
// table has no parseable dates.
func AsOf(t *Table) string {
	d, ok := t.MaxDate("Date")
	if !ok {
		return ""
	}
	return FormatDate(d)
}

// DateSlug turns a display date into a file-name friendly M-D-YYYY.
func DateSlug(display string) string {
	return strings.ReplaceAll(display, "/", "-")
}

// PriorBusinessDay returns the calendar day before t, walking back over
// Saturday and Sunday. Holidays are not considered.
func PriorBusinessDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// SessionDates derives the cover page dates from a trading session display
// date (M/D/YYYY). Both results are "" when the input does not parse.
func SessionDates(session string) (tradingSession, dataAsOf string) {
	t, err := time.Parse("1/2/2006", strings.TrimSpace(session))
	if err != nil {
		return "", ""
	}
	return FormatDate(t), FormatDate(PriorBusinessDay(t))
}
