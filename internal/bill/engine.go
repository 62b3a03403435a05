// Package bill pays bill reminders into the ledger and rolls recurring
// bills forward to their next due date.
package bill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
	"github.com/dukerupert/homeledger/internal/recurrence"
)

const descriptionPrefix = "Pagamento: "

// Engine advances due dates on the household's calendar: day of month and
// month-end clamping are taken in loc, not in UTC.
type Engine struct {
	docs   docstore.Store
	loc    *time.Location
	logger *slog.Logger
}

func NewEngine(docs docstore.Store, loc *time.Location, logger *slog.Logger) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{docs: docs, loc: loc, logger: logger.With("component", "bill")}
}

func validateBill(op string, b model.BillReminder) error {
	if err := model.Validate(op, b); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return apperr.Validation(op, "category is required")
	}
	if !b.Value.IsPositive() {
		return apperr.Validation(op, "value must be greater than 0")
	}
	return nil
}

// rule returns the recurrence of a recurring bill, bounded by its end date.
func rule(b model.BillReminder) (recurrence.Rule, error) {
	if b.Frequency == nil {
		return recurrence.Rule{}, fmt.Errorf("bill %s has no frequency", b.ID)
	}
	interval := 1
	if b.Interval != nil {
		interval = *b.Interval
	}
	return recurrence.NewRule(*b.Frequency, interval, b.EndDate)
}

// MarkPaid records the payment of bill's current occurrence as an expense
// dated at the due date. A recurring bill moves to its next due date, or is
// closed when that date falls after its end date. Payment cannot be undone.
func (e *Engine) MarkPaid(ctx context.Context, groupID, actor string, bill model.BillReminder) error {
	const op = "mark bill paid"
	if bill.ID == "" {
		return apperr.Validation(op, "bill id is required")
	}
	if actor == "" {
		return apperr.Validation(op, "actor is required")
	}
	if err := validateBill(op, bill); err != nil {
		return err
	}
	if bill.IsPaid {
		return apperr.Validation(op, "bill %q is already paid", bill.Name)
	}

	now := e.docs.Now()
	b := docstore.NewBatch()

	txID := ledger.NewID()
	desc := descriptionPrefix + bill.Name
	billID := bill.ID
	ledger.StageCreate(b, groupID, model.Transaction{
		ID:           txID,
		Value:        bill.Value,
		Type:         model.TransactionExpense,
		Category:     bill.Category,
		Description:  &desc,
		Date:         bill.DueDate,
		UserID:       actor,
		CreatedAt:    now,
		LinkedBillID: &billID,
	})

	update := docstore.Fields{"isPaid": true, "lastPaidDate": now}
	if bill.IsRecurring {
		r, err := rule(bill)
		if err != nil {
			return apperr.Validation(op, "%v", err)
		}
		next := recurrence.Advance(bill.DueDate.In(e.loc), r)
		if bill.EndDate == nil || !next.After(*bill.EndDate) {
			update = docstore.Fields{"dueDate": next, "isPaid": false, "lastPaidDate": now}
		}
	}
	b.Update(Collection(groupID), bill.ID, update)

	if err := e.docs.Commit(ctx, b); err != nil {
		e.logger.Error("mark bill paid failed", "group_id", groupID, "bill_id", bill.ID, "error", err)
		return fmt.Errorf("mark bill paid: %w", err)
	}

	attrs := []any{"group_id", groupID, "bill_id", bill.ID, "transaction_id", txID}
	if next, ok := update["dueDate"]; ok {
		attrs = append(attrs, "next_due", next)
	}
	e.logger.Info("bill paid", attrs...)
	return nil
}
