package recurrence

import (
	"fmt"
	"strings"
	"time"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
	Yearly
)

var freqNames = map[Freq]string{
	Daily:   "daily",
	Weekly:  "weekly",
	Monthly: "monthly",
	Yearly:  "yearly",
}

var freqFromName = map[string]Freq{
	"daily":   Daily,
	"weekly":  Weekly,
	"monthly": Monthly,
	"yearly":  Yearly,
}

func (f Freq) String() string {
	if name, ok := freqNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Freq(%d)", int(f))
}

// ParseFreq accepts the lowercase frequency names stored on bills, in any case.
func ParseFreq(s string) (Freq, error) {
	f, ok := freqFromName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown frequency: %q", s)
	}
	return f, nil
}

type Rule struct {
	Freq     Freq
	Interval int        // default 1; 2 = every other period
	Until    *time.Time // last allowed occurrence, inclusive (nil = no limit)
}

// NewRule builds a rule from a stored frequency name and interval.
// An interval below 1 is treated as 1.
func NewRule(freq string, interval int, until *time.Time) (Rule, error) {
	f, err := ParseFreq(freq)
	if err != nil {
		return Rule{}, err
	}
	if interval < 1 {
		interval = 1
	}
	return Rule{Freq: f, Interval: interval, Until: until}, nil
}

func (r Rule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	n := r.interval()
	switch r.Freq {
	case Daily:
		if n > 1 {
			return fmt.Sprintf("Repeats every %d days", n)
		}
		return "Repeats daily"
	case Weekly:
		if n == 2 {
			return "Repeats every 2 weeks"
		} else if n > 2 {
			return fmt.Sprintf("Repeats every %d weeks", n)
		}
		return "Repeats weekly"
	case Monthly:
		if n > 1 {
			return fmt.Sprintf("Repeats every %d months", n)
		}
		return "Repeats monthly"
	case Yearly:
		if n > 1 {
			return fmt.Sprintf("Repeats every %d years", n)
		}
		return "Repeats yearly"
	}
	return ""
}
