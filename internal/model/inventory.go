package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is the stock record of a product. NameKey is the
// normalized name used to match purchases against existing stock.
type InventoryItem struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name" validate:"required"`
	NameKey              string           `json:"name_key"`
	Quantity             int              `json:"quantity" validate:"gte=0"`
	Unit                 string           `json:"unit"`
	Category             *string          `json:"category,omitempty"`
	Store                *string          `json:"store,omitempty"`
	LastPurchaseDate     *time.Time       `json:"last_purchase_date,omitempty"`
	LastPurchaseValue    *decimal.Decimal `json:"last_purchase_value,omitempty"`
	LastPurchaseQuantity *int             `json:"last_purchase_quantity,omitempty"`
	NextPurchaseDate     *time.Time       `json:"next_purchase_date,omitempty"`
	NextPurchaseValue    *decimal.Decimal `json:"next_purchase_value,omitempty"`
	AddedBy              string           `json:"added_by"`
	AddedAt              time.Time        `json:"added_at"`
	LastUpdatedBy        string           `json:"last_updated_by"`
	UpdatedAt            time.Time        `json:"updated_at"`
}
