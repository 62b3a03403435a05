package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShoppingItem is an entry on a group's shopping list.
//
// LinkedTransactionID is set only while the item is bought and had an
// estimated value when it was marked bought; it always names a live
// transaction.
type ShoppingItem struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name" validate:"required"`
	Quantity            int              `json:"quantity" validate:"gt=0"`
	Unit                string           `json:"unit"`
	Category            *string          `json:"category,omitempty"`
	Store               *string          `json:"store,omitempty"`
	EstimatedValue      *decimal.Decimal `json:"estimated_value,omitempty"`
	IsBought            bool             `json:"is_bought"`
	BoughtAt            *time.Time       `json:"bought_at,omitempty"`
	BoughtBy            *string          `json:"bought_by,omitempty"`
	LinkedTransactionID *string          `json:"linked_transaction_id,omitempty"`
	AddedBy             string           `json:"added_by"`
	AddedAt             time.Time        `json:"added_at"`
}

// HasValue reports whether the item carries a positive estimated value.
func (i ShoppingItem) HasValue() bool {
	return i.EstimatedValue != nil && i.EstimatedValue.IsPositive()
}
