package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillReminder is the next occurrence of a bill. Paying a recurring bill
// moves DueDate forward instead of keeping history.
type BillReminder struct {
	ID                     string          `json:"id"`
	Name                   string          `json:"name" validate:"required"`
	Value                  decimal.Decimal `json:"value"`
	Category               string          `json:"category"`
	DueDate                time.Time       `json:"due_date" validate:"required"`
	IsPaid                 bool            `json:"is_paid"`
	IsRecurring            bool            `json:"is_recurring"`
	Frequency              *string         `json:"frequency,omitempty" validate:"required_if=IsRecurring true,omitempty,oneof=daily weekly monthly yearly"`
	Interval               *int            `json:"interval,omitempty" validate:"omitempty,gte=1"`
	EndDate                *time.Time      `json:"end_date,omitempty"`
	NotificationDaysBefore int             `json:"notification_days_before" validate:"gte=0"`
	LastPaidDate           *time.Time      `json:"last_paid_date,omitempty"`
}
