package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/model"
)

// Repository covers manual stock edits. Purchases go through Resolver.
type Repository struct {
	docs docstore.Store
}

func NewRepository(docs docstore.Store) *Repository {
	return &Repository{docs: docs}
}

func (r *Repository) List(ctx context.Context, groupID string) ([]model.InventoryItem, error) {
	docs, err := r.docs.Query(ctx, docstore.Query{Collection: Collection(groupID), OrderBy: "nameKey"})
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	items := make([]model.InventoryItem, len(docs))
	for i, d := range docs {
		items[i] = fromDocument(d)
	}
	return items, nil
}

func (r *Repository) Get(ctx context.Context, groupID, id string) (*model.InventoryItem, error) {
	d, err := r.docs.Get(ctx, Collection(groupID), id)
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	item := fromDocument(*d)
	return &item, nil
}

// Create adds a stock record by hand. A record whose name matches an
// existing one is rejected so purchases keep a single match.
func (r *Repository) Create(ctx context.Context, groupID, actor string, item model.InventoryItem) (*model.InventoryItem, error) {
	const op = "create inventory item"
	if err := model.Validate(op, item); err != nil {
		return nil, err
	}
	key := MatchKey(item.Name)
	existing, err := r.docs.Query(ctx, docstore.Query{
		Collection: Collection(groupID),
		Filters:    []docstore.Filter{docstore.Where("nameKey", docstore.Eq, key)},
	})
	if err != nil {
		return nil, fmt.Errorf("create inventory item: %w", err)
	}
	if len(existing) > 0 {
		return nil, apperr.Validation(op, "an item named %q already exists", existing[0].String("name"))
	}

	now := r.docs.Now()
	item.ID = uuid.NewString()
	item.Name = strings.TrimSpace(item.Name)
	item.NameKey = key
	if item.Category == nil {
		c := DefaultCategory
		item.Category = &c
	}
	item.AddedBy, item.LastUpdatedBy = actor, actor
	item.AddedAt, item.UpdatedAt = now, now

	b := docstore.NewBatch().Create(Collection(groupID), item.ID, docstore.Fields{
		"name":                 item.Name,
		"nameKey":              item.NameKey,
		"quantity":             item.Quantity,
		"unit":                 item.Unit,
		"category":             item.Category,
		"store":                item.Store,
		"lastPurchaseDate":     item.LastPurchaseDate,
		"lastPurchaseValue":    item.LastPurchaseValue,
		"lastPurchaseQuantity": item.LastPurchaseQuantity,
		"nextPurchaseDate":     item.NextPurchaseDate,
		"nextPurchaseValue":    item.NextPurchaseValue,
		"addedBy":              item.AddedBy,
		"addedAt":              item.AddedAt,
		"lastUpdatedBy":        item.LastUpdatedBy,
		"updatedAt":            item.UpdatedAt,
	})
	if err := r.docs.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("create inventory item: %w", err)
	}
	return &item, nil
}

// SetQuantity overwrites the stock level, e.g. after a physical count.
func (r *Repository) SetQuantity(ctx context.Context, groupID, actor, id string, quantity int) error {
	if quantity < 0 {
		return apperr.Validation("set inventory quantity", "quantity must be at least 0")
	}
	b := docstore.NewBatch().Update(Collection(groupID), id, docstore.Fields{
		"quantity":      quantity,
		"lastUpdatedBy": actor,
		"updatedAt":     r.docs.Now(),
	})
	if err := r.docs.Commit(ctx, b); err != nil {
		return fmt.Errorf("set inventory quantity: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, groupID, id string) error {
	if err := r.docs.Commit(ctx, docstore.NewBatch().Delete(Collection(groupID), id)); err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	return nil
}
