package recurrence

import "time"

// Advance returns the occurrence that follows t. Monthly and yearly steps
// keep the day of month, clamped to the last day of a shorter month
// (Jan 31 -> Feb 29 in a leap year). The time of day is preserved.
func Advance(t time.Time, rule Rule) time.Time {
	return step(t, rule, 1)
}

// step moves n periods from anchor in one jump so repeated clamping
// does not drift the day of month.
func step(anchor time.Time, rule Rule, n int) time.Time {
	k := n * rule.interval()
	switch rule.Freq {
	case Daily:
		return anchor.AddDate(0, 0, k)
	case Weekly:
		return anchor.AddDate(0, 0, 7*k)
	case Monthly:
		return addMonths(anchor, k)
	case Yearly:
		return addMonths(anchor, 12*k)
	}
	return time.Time{}
}

func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	y, m, _ := first.Date()
	if last := daysInMonth(y, m); day > last {
		day = last
	}
	return time.Date(y, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// Expand returns every occurrence of rule starting at start that falls
// within [from, to], both ends inclusive.
func Expand(rule Rule, start, from, to time.Time) []time.Time {
	// Safety limit to prevent runaway loops on tiny intervals over huge ranges.
	const maxIterations = 10000

	var results []time.Time
	for n := 0; n < maxIterations; n++ {
		occ := step(start, rule, n)
		if occ.IsZero() {
			break
		}
		if rule.Until != nil && occ.After(*rule.Until) {
			break
		}
		if occ.After(to) {
			break
		}
		if !occ.Before(from) {
			results = append(results, occ)
		}
	}
	return results
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
