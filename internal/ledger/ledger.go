// Package ledger stores a group's transactions. It has no business rules of
// its own: the shopping and bill engines stage ledger writes into their own
// batches through the Stage helpers.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/model"
)

type Ledger struct {
	docs docstore.Store
}

func New(docs docstore.Store) *Ledger {
	return &Ledger{docs: docs}
}

func Collection(groupID string) string {
	return docstore.Path(groupID, docstore.KindTransactions)
}

// NewID reserves an id for a transaction that will be staged later.
func NewID() string {
	return uuid.NewString()
}

// Fields converts tx to its document form. The id is the document key and
// is not stored as a field.
func Fields(tx model.Transaction) docstore.Fields {
	return docstore.Fields{
		"value":        tx.Value,
		"type":         string(tx.Type),
		"category":     tx.Category,
		"description":  tx.Description,
		"date":         tx.Date,
		"userId":       tx.UserID,
		"createdAt":    tx.CreatedAt,
		"linkedBillId": tx.LinkedBillID,
	}
}

func FromDocument(d docstore.Document) model.Transaction {
	return model.Transaction{
		ID:           d.ID,
		Value:        d.Decimal("value"),
		Type:         model.TransactionType(d.String("type")),
		Category:     d.String("category"),
		Description:  d.OptString("description"),
		Date:         d.Time("date"),
		UserID:       d.String("userId"),
		CreatedAt:    d.Time("createdAt"),
		LinkedBillID: d.OptString("linkedBillId"),
	}
}

func StageCreate(b *docstore.Batch, groupID string, tx model.Transaction) {
	b.Create(Collection(groupID), tx.ID, Fields(tx))
}

func StageUpdate(b *docstore.Batch, groupID, id string, fields docstore.Fields) {
	b.Update(Collection(groupID), id, fields)
}

func StageDelete(b *docstore.Batch, groupID, id string) {
	b.Delete(Collection(groupID), id)
}

func validateValue(op string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return apperr.Validation(op, "value must be greater than 0")
	}
	return nil
}

// Record appends a transaction entered directly by a user. Linked
// transactions are only created by the shopping and bill engines.
func (l *Ledger) Record(ctx context.Context, groupID string, tx model.Transaction) (*model.Transaction, error) {
	const op = "record transaction"
	if tx.LinkedBillID != nil {
		return nil, apperr.Validation(op, "linked transactions are created by paying a bill")
	}
	if err := validateValue(op, tx.Value); err != nil {
		return nil, err
	}
	if err := model.Validate(op, tx); err != nil {
		return nil, err
	}

	if tx.ID == "" {
		tx.ID = NewID()
	}
	tx.CreatedAt = l.docs.Now()

	b := docstore.NewBatch()
	StageCreate(b, groupID, tx)
	if err := l.docs.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	return &tx, nil
}

// Update rewrites the editable fields of a transaction.
func (l *Ledger) Update(ctx context.Context, groupID string, tx model.Transaction) error {
	const op = "update transaction"
	if err := validateValue(op, tx.Value); err != nil {
		return err
	}
	if err := model.Validate(op, tx); err != nil {
		return err
	}

	b := docstore.NewBatch()
	StageUpdate(b, groupID, tx.ID, docstore.Fields{
		"value":       tx.Value,
		"type":        string(tx.Type),
		"category":    tx.Category,
		"description": tx.Description,
		"date":        tx.Date,
	})
	if err := l.docs.Commit(ctx, b); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// Delete removes a transaction. A transaction still referenced by a
// shopping item must be removed by unmarking or deleting that item.
func (l *Ledger) Delete(ctx context.Context, groupID, id string) error {
	owners, err := l.docs.Query(ctx, docstore.Query{
		Collection: docstore.Path(groupID, docstore.KindShoppingItems),
		Filters:    []docstore.Filter{docstore.Where("linkedTransactionId", docstore.Eq, id)},
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if len(owners) > 0 {
		return apperr.Validation("delete transaction", "transaction is linked to shopping item %q", owners[0].ID)
	}

	b := docstore.NewBatch()
	StageDelete(b, groupID, id)
	if err := l.docs.Commit(ctx, b); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, groupID, id string) (*model.Transaction, error) {
	d, err := l.docs.Get(ctx, Collection(groupID), id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	tx := FromDocument(*d)
	return &tx, nil
}

func rangeQuery(groupID string, r Range) docstore.Query {
	return docstore.Query{
		Collection: Collection(groupID),
		Filters: []docstore.Filter{
			docstore.Where("date", docstore.Gte, r.Start),
			docstore.Where("date", docstore.Lte, r.End),
		},
		OrderBy: "date",
		Desc:    true,
	}
}

// ListRange returns the transactions dated within r, newest first.
func (l *Ledger) ListRange(ctx context.Context, groupID string, r Range) ([]model.Transaction, error) {
	docs, err := l.docs.Query(ctx, rangeQuery(groupID, r))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return fromDocuments(docs), nil
}

func (l *Ledger) ListMonth(ctx context.Context, groupID, monthYear string, loc *time.Location) ([]model.Transaction, error) {
	r, err := MonthRange(monthYear, loc)
	if err != nil {
		return nil, err
	}
	return l.ListRange(ctx, groupID, r)
}

// SubscribeRange streams the transactions within r after every ledger
// change. The channel closes when ctx is done.
func (l *Ledger) SubscribeRange(ctx context.Context, groupID string, r Range) (<-chan []model.Transaction, error) {
	docs, err := l.docs.Subscribe(ctx, rangeQuery(groupID, r))
	if err != nil {
		return nil, fmt.Errorf("subscribe transactions: %w", err)
	}

	out := make(chan []model.Transaction, 1)
	go func() {
		defer close(out)
		for snapshot := range docs {
			select {
			case out <- fromDocuments(snapshot):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func fromDocuments(docs []docstore.Document) []model.Transaction {
	txs := make([]model.Transaction, len(docs))
	for i, d := range docs {
		txs[i] = FromDocument(d)
	}
	return txs
}
