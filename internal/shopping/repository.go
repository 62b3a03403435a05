package shopping

import (
	"context"
	"fmt"
	"sort"

	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/model"
)

func Fields(item model.ShoppingItem) docstore.Fields {
	return docstore.Fields{
		"name":                item.Name,
		"quantity":            item.Quantity,
		"unit":                item.Unit,
		"category":            item.Category,
		"store":               item.Store,
		"estimatedValue":      item.EstimatedValue,
		"isBought":            item.IsBought,
		"boughtAt":            item.BoughtAt,
		"boughtBy":            item.BoughtBy,
		"linkedTransactionId": item.LinkedTransactionID,
		"addedBy":             item.AddedBy,
		"addedAt":             item.AddedAt,
	}
}

func FromDocument(d docstore.Document) model.ShoppingItem {
	return model.ShoppingItem{
		ID:                  d.ID,
		Name:                d.String("name"),
		Quantity:            d.Int("quantity"),
		Unit:                d.String("unit"),
		Category:            d.OptString("category"),
		Store:               d.OptString("store"),
		EstimatedValue:      d.OptDecimal("estimatedValue"),
		IsBought:            d.Bool("isBought"),
		BoughtAt:            d.OptTime("boughtAt"),
		BoughtBy:            d.OptString("boughtBy"),
		LinkedTransactionID: d.OptString("linkedTransactionId"),
		AddedBy:             d.String("addedBy"),
		AddedAt:             d.Time("addedAt"),
	}
}

type Repository struct {
	docs docstore.Store
}

func NewRepository(docs docstore.Store) *Repository {
	return &Repository{docs: docs}
}

// List returns the group's items, not yet bought first, each part in the
// order the items were added.
func (r *Repository) List(ctx context.Context, groupID string) ([]model.ShoppingItem, error) {
	docs, err := r.docs.Query(ctx, docstore.Query{Collection: Collection(groupID), OrderBy: "addedAt"})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]model.ShoppingItem, len(docs))
	for i, d := range docs {
		items[i] = FromDocument(d)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return !items[i].IsBought && items[j].IsBought
	})
	return items, nil
}

func (r *Repository) Get(ctx context.Context, groupID, id string) (*model.ShoppingItem, error) {
	d, err := r.docs.Get(ctx, Collection(groupID), id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	item := FromDocument(*d)
	return &item, nil
}
