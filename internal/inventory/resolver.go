// Package inventory keeps stock records in step with purchases.
package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/model"
)

// DefaultCategory is given to stock records created from a purchase
// without a category.
const DefaultCategory = "Geral"

type Mode string

const (
	ModeUpdate Mode = "UPDATE"
	ModeCreate Mode = "CREATE"
)

func Collection(groupID string) string {
	return docstore.Path(groupID, docstore.KindInventory)
}

// MatchKey normalizes a product name for matching: surrounding space is
// trimmed, inner runs of space collapse to one and case is folded.
func MatchKey(name string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

// Purchase is one confirmed purchase to fold into stock.
type Purchase struct {
	GroupID   string
	Name      string
	Quantity  int
	TotalPaid *decimal.Decimal
	Category  *string
	Unit      string
	Store     *string
	Actor     string
	At        time.Time
}

// Plan is the write a purchase turns into. Merged lists duplicate stock
// records folded into ItemID; they are deleted by the same batch.
type Plan struct {
	Mode   Mode
	ItemID string
	Fields docstore.Fields
	Merged []string
}

// Stage adds the plan's writes to b.
func (p *Plan) Stage(b *docstore.Batch, groupID string) {
	coll := Collection(groupID)
	switch p.Mode {
	case ModeCreate:
		b.Create(coll, p.ItemID, p.Fields)
	case ModeUpdate:
		b.Update(coll, p.ItemID, p.Fields)
	}
	for _, id := range p.Merged {
		b.Delete(coll, id)
	}
}

// Resolver finds or creates the stock record a purchase lands on. It only
// reads; the caller commits the returned plan with its own writes.
type Resolver struct {
	docs   docstore.Store
	logger *slog.Logger
}

func NewResolver(docs docstore.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{docs: docs, logger: logger.With("component", "inventory")}
}

func (r *Resolver) Resolve(ctx context.Context, p Purchase) (*Plan, error) {
	const op = "resolve inventory"
	key := MatchKey(p.Name)
	if key == "" {
		return nil, apperr.Validation(op, "name is required")
	}
	if p.Quantity <= 0 {
		return nil, apperr.Validation(op, "quantity must be greater than 0")
	}

	matches, err := r.docs.Query(ctx, docstore.Query{
		Collection: Collection(p.GroupID),
		Filters:    []docstore.Filter{docstore.Where("nameKey", docstore.Eq, key)},
		OrderBy:    "addedAt",
	})
	if err != nil {
		return nil, fmt.Errorf("resolve inventory: %w", err)
	}

	if len(matches) == 0 {
		return r.createPlan(p, key), nil
	}
	return r.updatePlan(p, matches), nil
}

func (r *Resolver) createPlan(p Purchase, key string) *Plan {
	category := DefaultCategory
	if p.Category != nil && strings.TrimSpace(*p.Category) != "" {
		category = *p.Category
	}
	qty := p.Quantity
	return &Plan{
		Mode:   ModeCreate,
		ItemID: uuid.NewString(),
		Fields: docstore.Fields{
			"name":                 strings.TrimSpace(p.Name),
			"nameKey":              key,
			"quantity":             p.Quantity,
			"unit":                 p.Unit,
			"category":             category,
			"store":                p.Store,
			"lastPurchaseDate":     p.At,
			"lastPurchaseValue":    p.TotalPaid,
			"lastPurchaseQuantity": &qty,
			"nextPurchaseDate":     nil,
			"nextPurchaseValue":    nil,
			"addedBy":              p.Actor,
			"addedAt":              p.At,
			"lastUpdatedBy":        p.Actor,
			"updatedAt":            p.At,
		},
	}
}

// updatePlan adds the purchase to the oldest matching record. Any other
// record with the same key is merged into it.
func (r *Resolver) updatePlan(p Purchase, matches []docstore.Document) *Plan {
	keep := matches[0]
	quantity := keep.Int("quantity")
	var merged []string
	for _, dup := range matches[1:] {
		quantity += dup.Int("quantity")
		merged = append(merged, dup.ID)
	}
	if len(merged) > 0 {
		r.logger.Warn("merging duplicate inventory records",
			"group_id", p.GroupID, "item_id", keep.ID, "duplicates", merged)
	}

	qty := p.Quantity
	fields := docstore.Fields{
		"quantity":             quantity + p.Quantity,
		"lastPurchaseDate":     p.At,
		"lastPurchaseValue":    p.TotalPaid,
		"lastPurchaseQuantity": &qty,
		"lastUpdatedBy":        p.Actor,
		"updatedAt":            p.At,
	}
	// Absent purchase details never clear what the record already has.
	if p.Category != nil && strings.TrimSpace(*p.Category) != "" {
		fields["category"] = *p.Category
	}
	if p.Unit != "" {
		fields["unit"] = p.Unit
	}
	if p.Store != nil && strings.TrimSpace(*p.Store) != "" {
		fields["store"] = *p.Store
	}

	return &Plan{Mode: ModeUpdate, ItemID: keep.ID, Fields: fields, Merged: merged}
}

func fromDocument(d docstore.Document) model.InventoryItem {
	return model.InventoryItem{
		ID:                   d.ID,
		Name:                 d.String("name"),
		NameKey:              d.String("nameKey"),
		Quantity:             d.Int("quantity"),
		Unit:                 d.String("unit"),
		Category:             d.OptString("category"),
		Store:                d.OptString("store"),
		LastPurchaseDate:     d.OptTime("lastPurchaseDate"),
		LastPurchaseValue:    d.OptDecimal("lastPurchaseValue"),
		LastPurchaseQuantity: d.OptInt("lastPurchaseQuantity"),
		NextPurchaseDate:     d.OptTime("nextPurchaseDate"),
		NextPurchaseValue:    d.OptDecimal("nextPurchaseValue"),
		AddedBy:              d.String("addedBy"),
		AddedAt:              d.Time("addedAt"),
		LastUpdatedBy:        d.String("lastUpdatedBy"),
		UpdatedAt:            d.Time("updatedAt"),
	}
}
