package ledger

import (
	"time"

	"github.com/dukerupert/homeledger/internal/apperr"
)

// Range is a closed interval of time: both Start and End are included.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// DayRange widens [from, to] to whole days in loc: from's start of day to
// the last nanosecond of to's day.
func DayRange(from, to time.Time, loc *time.Location) Range {
	if loc == nil {
		loc = time.UTC
	}
	return Range{
		Start: startOfDay(from.In(loc)),
		End:   endOfDay(to.In(loc)),
	}
}

// MonthRange returns the whole calendar month named by monthYear
// ("YYYY-MM") in loc.
func MonthRange(monthYear string, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	first, err := time.ParseInLocation("2006-01", monthYear, loc)
	if err != nil {
		return Range{}, apperr.Validation("month range", "month must be YYYY-MM, got %q", monthYear)
	}
	last := first.AddDate(0, 1, -1)
	return Range{Start: first, End: endOfDay(last)}, nil
}

// PreviousMonth returns the month before monthYear in the same format.
func PreviousMonth(monthYear string) (string, error) {
	t, err := time.Parse("2006-01", monthYear)
	if err != nil {
		return "", apperr.Validation("previous month", "month must be YYYY-MM, got %q", monthYear)
	}
	return t.AddDate(0, -1, 0).Format("2006-01"), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
