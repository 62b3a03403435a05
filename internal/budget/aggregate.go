// Package budget derives budget usage and period totals from the ledger.
// Nothing here is stored: every figure is recomputed from transactions.
package budget

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// percent returns part/whole*100 rounded to a whole number, halves going
// toward positive infinity (-2.5 -> -2, 2.5 -> 3).
func percent(part, whole decimal.Decimal) decimal.Decimal {
	return part.Div(whole).Mul(hundred).Add(half).Floor()
}

// ComputeBudgetSpent sums the expenses inside bounds whose category is
// one of the budget's categories.
func ComputeBudgetSpent(txs []model.Transaction, b model.Budget, bounds ledger.Range) decimal.Decimal {
	categories := make(map[string]bool, len(b.Categories))
	for _, c := range b.Categories {
		categories[c] = true
	}

	spent := decimal.Zero
	for _, tx := range txs {
		if tx.Type != model.TransactionExpense || !categories[tx.Category] || !bounds.Contains(tx.Date) {
			continue
		}
		spent = spent.Add(tx.Value)
	}
	return spent
}

type Summary struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

func ComputePeriodSummary(txs []model.Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expenses: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case model.TransactionIncome:
			s.Income = s.Income.Add(tx.Value)
		case model.TransactionExpense:
			s.Expenses = s.Expenses.Add(tx.Value)
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)
	return s
}

type CategoryShare struct {
	Category   string          `json:"category"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	Percentage int64           `json:"percentage"`
}

// ComputeCategoryBreakdown groups expenses by category, largest first.
// Categories with equal totals are ordered by name.
func ComputeCategoryBreakdown(txs []model.Transaction) []CategoryShare {
	totals := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != model.TransactionExpense {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Value)
		total = total.Add(tx.Value)
	}

	shares := make([]CategoryShare, 0, len(totals))
	for category, spent := range totals {
		var pct int64
		if !total.IsZero() {
			pct = percent(spent, total).IntPart()
		}
		shares = append(shares, CategoryShare{Category: category, TotalSpent: spent, Percentage: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].TotalSpent.Cmp(shares[j].TotalSpent); c != 0 {
			return c > 0
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}

// ComputePeriodOverPeriodChange returns the change from previous to
// current in whole percent. ok is false when both periods are zero. A
// zero previous period with a non-zero current one yields ±Inf.
func ComputePeriodOverPeriodChange(current, previous decimal.Decimal) (pct float64, ok bool) {
	switch {
	case previous.IsZero() && current.IsZero():
		return 0, false
	case previous.IsZero():
		return math.Inf(current.Sign()), true
	case current.IsZero():
		return -100, true
	}
	change := percent(current.Sub(previous), previous)
	return change.InexactFloat64(), true
}
