package model

import "github.com/shopspring/decimal"

const BudgetMonthly = "monthly"

// Budget caps spending over a set of categories for one calendar month.
// The spent amount is always derived from the ledger, never stored.
type Budget struct {
	ID           string          `json:"id"`
	Name         string          `json:"name" validate:"required"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Categories   []string        `json:"categories" validate:"min=1,unique,dive,required"`
	MonthYear    string          `json:"month_year" validate:"required,datetime=2006-01"`
	Type         string          `json:"type" validate:"oneof=monthly"`
}
