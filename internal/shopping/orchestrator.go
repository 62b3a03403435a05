// Package shopping drives the shopping list. Marking an item bought writes
// the item, its expense transaction and the stock record in one batch so
// the three never disagree.
package shopping

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/inventory"
	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
)

const (
	// DefaultCategory is used for purchase transactions of uncategorized items.
	DefaultCategory   = "Compras"
	descriptionPrefix = "Compra: "
)

func Collection(groupID string) string {
	return docstore.Path(groupID, docstore.KindShoppingItems)
}

type Orchestrator struct {
	docs     docstore.Store
	resolver *inventory.Resolver
	logger   *slog.Logger
}

func NewOrchestrator(docs docstore.Store, resolver *inventory.Resolver, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{docs: docs, resolver: resolver, logger: logger.With("component", "shopping")}
}

// ToggleBought flips item between bought and not bought. item must be the
// caller's current snapshot; it is not re-read. Either every write of the
// transition is applied or none is.
func (o *Orchestrator) ToggleBought(ctx context.Context, groupID, actor string, item model.ShoppingItem) error {
	if item.ID == "" {
		return apperr.Validation("toggle bought", "item id is required")
	}
	if actor == "" {
		return apperr.Validation("toggle bought", "actor is required")
	}
	if item.IsBought {
		return o.markNotBought(ctx, groupID, item)
	}
	return o.markBought(ctx, groupID, actor, item)
}

func (o *Orchestrator) markBought(ctx context.Context, groupID, actor string, item model.ShoppingItem) error {
	if err := model.Validate("mark bought", item); err != nil {
		return err
	}
	now := o.docs.Now()
	b := docstore.NewBatch()

	var txID *string
	var paid *decimal.Decimal
	if item.HasValue() {
		paid = item.EstimatedValue
		id := ledger.NewID()
		txID = &id
		desc := descriptionPrefix + item.Name
		ledger.StageCreate(b, groupID, model.Transaction{
			ID:          id,
			Value:       *item.EstimatedValue,
			Type:        model.TransactionExpense,
			Category:    purchaseCategory(item.Category),
			Description: &desc,
			Date:        now,
			UserID:      actor,
			CreatedAt:   now,
		})
	}

	// Every read happens before the batch is committed.
	plan, err := o.resolver.Resolve(ctx, inventory.Purchase{
		GroupID:   groupID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		TotalPaid: paid,
		Category:  item.Category,
		Unit:      item.Unit,
		Store:     item.Store,
		Actor:     actor,
		At:        now,
	})
	if err != nil {
		return fmt.Errorf("mark bought: %w", err)
	}
	plan.Stage(b, groupID)

	b.Update(Collection(groupID), item.ID, docstore.Fields{
		"isBought":            true,
		"boughtAt":            now,
		"boughtBy":            actor,
		"linkedTransactionId": txID,
	})

	if err := o.docs.Commit(ctx, b); err != nil {
		o.logger.Error("mark bought failed", "group_id", groupID, "item_id", item.ID, "error", err)
		return fmt.Errorf("mark bought: %w", err)
	}

	attrs := []any{"group_id", groupID, "item_id", item.ID, "inventory_mode", plan.Mode, "inventory_id", plan.ItemID}
	if txID != nil {
		attrs = append(attrs, "transaction_id", *txID)
	}
	o.logger.Info("item marked bought", attrs...)
	return nil
}

// markNotBought leaves stock alone: a purchase that is taken back does not
// consume inventory.
func (o *Orchestrator) markNotBought(ctx context.Context, groupID string, item model.ShoppingItem) error {
	b := docstore.NewBatch()
	b.Update(Collection(groupID), item.ID, docstore.Fields{
		"isBought":            false,
		"boughtAt":            nil,
		"boughtBy":            nil,
		"linkedTransactionId": nil,
	})
	if item.LinkedTransactionID != nil {
		ledger.StageDelete(b, groupID, *item.LinkedTransactionID)
	}

	if err := o.docs.Commit(ctx, b); err != nil {
		o.logger.Error("mark not bought failed", "group_id", groupID, "item_id", item.ID, "error", err)
		return fmt.Errorf("mark not bought: %w", err)
	}
	o.logger.Info("item marked not bought", "group_id", groupID, "item_id", item.ID)
	return nil
}

// Create adds a new, not yet bought, item to the list.
func (o *Orchestrator) Create(ctx context.Context, groupID, actor string, item model.ShoppingItem) (*model.ShoppingItem, error) {
	if err := validateItem("create item", item); err != nil {
		return nil, err
	}

	item.ID = uuid.NewString()
	item.Name = strings.TrimSpace(item.Name)
	item.IsBought = false
	item.BoughtAt, item.BoughtBy, item.LinkedTransactionID = nil, nil, nil
	item.AddedBy = actor
	item.AddedAt = o.docs.Now()

	b := docstore.NewBatch().Create(Collection(groupID), item.ID, Fields(item))
	if err := o.docs.Commit(ctx, b); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &item, nil
}

// Edit applies updated's editable fields to the item whose current snapshot
// is current. When the item is bought with a linked transaction, the
// transaction follows the new value, or is removed if the value is gone.
func (o *Orchestrator) Edit(ctx context.Context, groupID string, current, updated model.ShoppingItem) error {
	if err := validateItem("edit item", updated); err != nil {
		return err
	}

	name := strings.TrimSpace(updated.Name)
	fields := docstore.Fields{
		"name":           name,
		"quantity":       updated.Quantity,
		"unit":           updated.Unit,
		"category":       updated.Category,
		"store":          updated.Store,
		"estimatedValue": updated.EstimatedValue,
	}
	b := docstore.NewBatch()

	if current.IsBought && current.LinkedTransactionID != nil {
		txID := *current.LinkedTransactionID
		if updated.HasValue() {
			ledger.StageUpdate(b, groupID, txID, docstore.Fields{
				"value":       *updated.EstimatedValue,
				"category":    purchaseCategory(updated.Category),
				"description": descriptionPrefix + name,
			})
		} else {
			ledger.StageDelete(b, groupID, txID)
			fields["linkedTransactionId"] = nil
		}
	}
	b.Update(Collection(groupID), current.ID, fields)

	if err := o.docs.Commit(ctx, b); err != nil {
		return fmt.Errorf("edit item: %w", err)
	}
	return nil
}

// Delete removes the item together with its linked transaction.
func (o *Orchestrator) Delete(ctx context.Context, groupID string, item model.ShoppingItem) error {
	b := docstore.NewBatch().Delete(Collection(groupID), item.ID)
	if item.LinkedTransactionID != nil {
		ledger.StageDelete(b, groupID, *item.LinkedTransactionID)
	}
	if err := o.docs.Commit(ctx, b); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	o.logger.Info("item deleted", "group_id", groupID, "item_id", item.ID)
	return nil
}

func validateItem(op string, item model.ShoppingItem) error {
	if err := model.Validate(op, item); err != nil {
		return err
	}
	if item.EstimatedValue != nil && item.EstimatedValue.IsNegative() {
		return apperr.Validation(op, "estimated_value must be at least 0")
	}
	return nil
}

func purchaseCategory(category *string) string {
	if category != nil && strings.TrimSpace(*category) != "" {
		return *category
	}
	return DefaultCategory
}
