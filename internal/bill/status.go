package bill

import (
	"time"

	"github.com/dukerupert/homeledger/internal/model"
	"github.com/dukerupert/homeledger/internal/recurrence"
)

type Status string

const (
	StatusPaid     Status = "paid"
	StatusOverdue  Status = "overdue"
	StatusDueSoon  Status = "due_soon"
	StatusUpcoming Status = "upcoming"
)

// ComputeStatus classifies bill relative to the calendar day of today. A
// bill is due soon from NotificationDaysBefore days ahead through its due day.
func ComputeStatus(bill model.BillReminder, today time.Time) Status {
	if bill.IsPaid {
		return StatusPaid
	}
	today = startOfDay(today)
	due := startOfDay(bill.DueDate.In(today.Location()))

	if due.Before(today) {
		return StatusOverdue
	}
	if !due.After(today.AddDate(0, 0, bill.NotificationDaysBefore)) {
		return StatusDueSoon
	}
	return StatusUpcoming
}

// Occurrences projects the due dates of bill that fall within [from, to],
// stepping on the calendar of loc. A paid bill has none left.
func Occurrences(bill model.BillReminder, from, to time.Time, loc *time.Location) []time.Time {
	if bill.IsPaid {
		return nil
	}
	if !bill.IsRecurring {
		if bill.DueDate.Before(from) || bill.DueDate.After(to) {
			return nil
		}
		return []time.Time{bill.DueDate.In(loc)}
	}
	r, err := rule(bill)
	if err != nil {
		return nil
	}
	return recurrence.Expand(r, bill.DueDate.In(loc), from, to)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
