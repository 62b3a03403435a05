// Package docstore describes the document store the ledger engines run on:
// atomic multi-document batches, point reads, filtered queries and realtime
// subscriptions over group-scoped collections.
package docstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Collection kinds under a group.
const (
	KindTransactions  = "transactions"
	KindShoppingItems = "shopping_items"
	KindInventory     = "inventory"
	KindBudgets       = "budgets"
	KindBills         = "bills"
)

// Path returns the collection path of kind inside a group.
func Path(groupID, kind string) string {
	return "groups/" + groupID + "/" + kind
}

// SplitPath is the inverse of Path. ok is false for collections that are
// not group scoped.
func SplitPath(collection string) (groupID, kind string, ok bool) {
	parts := strings.Split(collection, "/")
	if len(parts) != 3 || parts[0] != "groups" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// Fields holds document values keyed by field name. Values may be strings,
// bools, integers, floats, decimal.Decimal, time.Time, []string, nil, or
// pointers to those; see EncodeValue.
type Fields map[string]any

type Document struct {
	Collection string
	ID         string
	Fields     Fields
	UpdatedAt  time.Time
}

type OpKind int

const (
	OpCreate OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

type Op struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     Fields
}

// Batch accumulates writes that are applied all-or-nothing by Store.Commit.
// A Batch is not safe for concurrent use.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

// Create writes a whole document, replacing any document with the same id.
func (b *Batch) Create(collection, id string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpCreate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Update overwrites the given fields of an existing document. Committing an
// update for a missing document fails the whole batch.
func (b *Batch) Update(collection, id string, fields Fields) *Batch {
	b.ops = append(b.ops, Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
	return b
}

// Delete removes a document. Deleting a missing document is a no-op.
func (b *Batch) Delete(collection, id string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Collection: collection, ID: id})
	return b
}

func (b *Batch) Len() int { return len(b.ops) }

// Ops returns a copy of the staged operations in staging order.
func (b *Batch) Ops() []Op {
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

type Operator string

const (
	Eq  Operator = "=="
	Gte Operator = ">="
	Lte Operator = "<="
)

type Filter struct {
	Field string
	Op    Operator
	Value any
}

func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
}

// Change describes one applied operation of a committed batch.
type Change struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     Fields
}

// ChangeListener is called once per committed batch, after the commit.
type ChangeListener func(changes []Change)

// Store is the document store contract.
type Store interface {
	// Commit applies every operation of the batch or none of them.
	Commit(ctx context.Context, b *Batch) error
	// Get returns apperr.ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe sends the current result set of q, then a fresh result set
	// after every commit touching q.Collection. The channel is closed when
	// ctx is done. Slow readers only ever see the latest result set.
	Subscribe(ctx context.Context, q Query) (<-chan []Document, error)
	// Now is the store-assigned timestamp for server-written time fields.
	Now() time.Time
}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidField reports whether name can be used as a document field name.
func ValidField(name string) bool {
	return fieldName.MatchString(name)
}

// Validate checks the query shape without touching the store.
func (q Query) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("empty collection")
	}
	for _, f := range q.Filters {
		if !ValidField(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
		switch f.Op {
		case Eq, Gte, Lte:
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	if q.OrderBy != "" && !ValidField(q.OrderBy) {
		return fmt.Errorf("invalid order field %q", q.OrderBy)
	}
	return nil
}
