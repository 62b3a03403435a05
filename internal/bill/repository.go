package bill

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/model"
)

func Collection(groupID string) string {
	return docstore.Path(groupID, docstore.KindBills)
}

func Fields(b model.BillReminder) docstore.Fields {
	return docstore.Fields{
		"name":                   b.Name,
		"value":                  b.Value,
		"category":               b.Category,
		"dueDate":                b.DueDate,
		"isPaid":                 b.IsPaid,
		"isRecurring":            b.IsRecurring,
		"frequency":              b.Frequency,
		"interval":               b.Interval,
		"endDate":                b.EndDate,
		"notificationDaysBefore": b.NotificationDaysBefore,
		"lastPaidDate":           b.LastPaidDate,
	}
}

func FromDocument(d docstore.Document) model.BillReminder {
	return model.BillReminder{
		ID:                     d.ID,
		Name:                   d.String("name"),
		Value:                  d.Decimal("value"),
		Category:               d.String("category"),
		DueDate:                d.Time("dueDate"),
		IsPaid:                 d.Bool("isPaid"),
		IsRecurring:            d.Bool("isRecurring"),
		Frequency:              d.OptString("frequency"),
		Interval:               d.OptInt("interval"),
		EndDate:                d.OptTime("endDate"),
		NotificationDaysBefore: d.Int("notificationDaysBefore"),
		LastPaidDate:           d.OptTime("lastPaidDate"),
	}
}

type Repository struct {
	docs docstore.Store
}

func NewRepository(docs docstore.Store) *Repository {
	return &Repository{docs: docs}
}

// Create stores a new unpaid bill. A non-recurring bill carries no
// frequency or interval.
func (r *Repository) Create(ctx context.Context, groupID string, b model.BillReminder) (*model.BillReminder, error) {
	const op = "create bill"
	b.Name = strings.TrimSpace(b.Name)
	b.Category = strings.TrimSpace(b.Category)
	if !b.IsRecurring {
		b.Frequency = nil
		b.Interval = nil
		b.EndDate = nil
	}
	if err := validateBill(op, b); err != nil {
		return nil, err
	}
	b.ID = uuid.NewString()
	b.IsPaid = false
	b.LastPaidDate = nil

	if err := r.docs.Commit(ctx, docstore.NewBatch().Create(Collection(groupID), b.ID, Fields(b))); err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	return &b, nil
}

func (r *Repository) Get(ctx context.Context, groupID, id string) (*model.BillReminder, error) {
	d, err := r.docs.Get(ctx, Collection(groupID), id)
	if err != nil {
		return nil, fmt.Errorf("get bill: %w", err)
	}
	b := FromDocument(*d)
	return &b, nil
}

// List returns a group's bills, earliest due first.
func (r *Repository) List(ctx context.Context, groupID string) ([]model.BillReminder, error) {
	docs, err := r.docs.Query(ctx, docstore.Query{Collection: Collection(groupID), OrderBy: "dueDate"})
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	bills := make([]model.BillReminder, len(docs))
	for i, d := range docs {
		bills[i] = FromDocument(d)
	}
	return bills, nil
}

// Delete removes the bill. Transactions already recorded for it stay in
// the ledger.
func (r *Repository) Delete(ctx context.Context, groupID, id string) error {
	if err := r.docs.Commit(ctx, docstore.NewBatch().Delete(Collection(groupID), id)); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	return nil
}
