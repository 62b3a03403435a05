package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is one money movement in a group's ledger. Shopping items and
// bills reference transactions by id; the transaction itself only records
// the bill link.
type Transaction struct {
	ID           string          `json:"id"`
	Value        decimal.Decimal `json:"value"`
	Type         TransactionType `json:"type" validate:"required,oneof=income expense"`
	Category     string          `json:"category" validate:"required"`
	Description  *string         `json:"description,omitempty"`
	Date         time.Time       `json:"date" validate:"required"`
	UserID       string          `json:"user_id" validate:"required"`
	CreatedAt    time.Time       `json:"created_at"`
	LinkedBillID *string         `json:"linked_bill_id,omitempty"`
}
