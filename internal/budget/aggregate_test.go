package budget

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
)

func tx(typ model.TransactionType, value int64, category string, date time.Time) model.Transaction {
	return model.Transaction{Type: typ, Value: decimal.NewFromInt(value), Category: category, Date: date}
}

func jan(day int) time.Time {
	return time.Date(2024, 1, day, 10, 0, 0, 0, time.UTC)
}

func januaryBounds(t *testing.T) ledger.Range {
	t.Helper()
	r, err := ledger.MonthRange("2024-01", time.UTC)
	if err != nil {
		t.Fatalf("month range: %v", err)
	}
	return r
}

func TestComputeBudgetSpent(t *testing.T) {
	txs := []model.Transaction{
		tx(model.TransactionExpense, 100, "Food", jan(5)),
		tx(model.TransactionExpense, 50, "Food", jan(20)),
		tx(model.TransactionIncome, 500, "Food", jan(10)),
		tx(model.TransactionExpense, 30, "Transport", jan(15)),
	}
	b := model.Budget{Categories: []string{"Food"}, MonthYear: "2024-01"}

	got := ComputeBudgetSpent(txs, b, januaryBounds(t))
	if !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("spent = %s, want 150", got)
	}
}

func TestComputeBudgetSpentBoundaries(t *testing.T) {
	r := januaryBounds(t)
	txs := []model.Transaction{
		tx(model.TransactionExpense, 1, "Food", r.Start),
		tx(model.TransactionExpense, 2, "Food", r.End),
		tx(model.TransactionExpense, 4, "Food", r.Start.Add(-time.Nanosecond)),
		tx(model.TransactionExpense, 8, "Food", r.End.Add(time.Nanosecond)),
	}
	b := model.Budget{Categories: []string{"Food", "Home"}}

	if got := ComputeBudgetSpent(txs, b, r); !got.Equal(decimal.NewFromInt(3)) {
		t.Errorf("spent = %s, want 3", got)
	}
}

func TestComputeBudgetSpentEmpty(t *testing.T) {
	got := ComputeBudgetSpent(nil, model.Budget{Categories: []string{"Food"}}, januaryBounds(t))
	if !got.IsZero() {
		t.Errorf("spent = %s, want 0", got)
	}
}

func TestComputePeriodSummary(t *testing.T) {
	txs := []model.Transaction{
		tx(model.TransactionIncome, 1000, "Salary", jan(1)),
		tx(model.TransactionExpense, 300, "Rent", jan(2)),
		tx(model.TransactionExpense, 150, "Food", jan(3)),
	}
	s := ComputePeriodSummary(txs)
	if !s.Income.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("income = %s, want 1000", s.Income)
	}
	if !s.Expenses.Equal(decimal.NewFromInt(450)) {
		t.Errorf("expenses = %s, want 450", s.Expenses)
	}
	if !s.Balance.Equal(decimal.NewFromInt(550)) {
		t.Errorf("balance = %s, want 550", s.Balance)
	}

	empty := ComputePeriodSummary(nil)
	if !empty.Income.IsZero() || !empty.Expenses.IsZero() || !empty.Balance.IsZero() {
		t.Errorf("empty summary = %+v, want zeros", empty)
	}
}

func TestComputePeriodSummaryNegativeBalance(t *testing.T) {
	s := ComputePeriodSummary([]model.Transaction{tx(model.TransactionExpense, 80, "Food", jan(1))})
	if !s.Balance.Equal(decimal.NewFromInt(-80)) {
		t.Errorf("balance = %s, want -80", s.Balance)
	}
}

func TestComputeCategoryBreakdown(t *testing.T) {
	txs := []model.Transaction{
		tx(model.TransactionExpense, 50, "Food", jan(1)),
		tx(model.TransactionExpense, 25, "Food", jan(2)),
		tx(model.TransactionExpense, 20, "Transport", jan(3)),
		tx(model.TransactionExpense, 5, "Fun", jan(4)),
		tx(model.TransactionIncome, 900, "Salary", jan(5)),
	}

	got := ComputeCategoryBreakdown(txs)
	want := []struct {
		category string
		total    int64
		pct      int64
	}{
		{"Food", 75, 75},
		{"Transport", 20, 20},
		{"Fun", 5, 5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Category != w.category || !got[i].TotalSpent.Equal(decimal.NewFromInt(w.total)) || got[i].Percentage != w.pct {
			t.Errorf("share[%d] = %s %s %d%%, want %s %d %d%%", i, got[i].Category, got[i].TotalSpent, got[i].Percentage, w.category, w.total, w.pct)
		}
	}
}

func TestComputeCategoryBreakdownRoundsAndTies(t *testing.T) {
	txs := []model.Transaction{
		tx(model.TransactionExpense, 1, "B", jan(1)),
		tx(model.TransactionExpense, 1, "A", jan(1)),
		tx(model.TransactionExpense, 1, "C", jan(1)),
	}
	got := ComputeCategoryBreakdown(txs)
	if got[0].Category != "A" || got[1].Category != "B" || got[2].Category != "C" {
		t.Errorf("tie order = %s %s %s, want A B C", got[0].Category, got[1].Category, got[2].Category)
	}
	for _, s := range got {
		if s.Percentage != 33 {
			t.Errorf("%s percentage = %d, want 33", s.Category, s.Percentage)
		}
	}
}

func TestComputeCategoryBreakdownNoExpenses(t *testing.T) {
	got := ComputeCategoryBreakdown([]model.Transaction{tx(model.TransactionIncome, 10, "Salary", jan(1))})
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestComputePeriodOverPeriodChange(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		want     float64
		ok       bool
	}{
		{"both zero", 0, 0, 0, false},
		{"from zero", 200, 0, math.Inf(1), true},
		{"to zero", 0, 100, -100, true},
		{"increase", 150, 100, 50, true},
		{"decrease", 75, 100, -25, true},
		{"rounds", 2, 3, -33, true},
		{"negative half rounds up", 39, 40, -2, true},
		{"positive half rounds up", 41, 40, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputePeriodOverPeriodChange(decimal.NewFromInt(tt.current), decimal.NewFromInt(tt.previous))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("change = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChangeJSON(t *testing.T) {
	tests := []struct {
		c    Change
		want string
	}{
		{NewChange(decimal.Zero, decimal.Zero), "null"},
		{NewChange(decimal.NewFromInt(200), decimal.Zero), `"+Infinity"`},
		{NewChange(decimal.Zero, decimal.NewFromInt(100)), "-100"},
		{NewChange(decimal.NewFromInt(150), decimal.NewFromInt(100)), "50"},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.c)
		if err != nil {
			t.Errorf("marshal %+v: %v", tt.c, err)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("json = %s, want %s", got, tt.want)
		}
	}
}

func TestNewStatus(t *testing.T) {
	b := model.Budget{TargetAmount: decimal.NewFromInt(400)}
	s := NewStatus(b, decimal.NewFromInt(100))
	if !s.Remaining.Equal(decimal.NewFromInt(300)) || s.PercentUsed != 25 {
		t.Errorf("status = %s remaining, %d%%; want 300, 25%%", s.Remaining, s.PercentUsed)
	}

	over := NewStatus(b, decimal.NewFromInt(500))
	if !over.Remaining.Equal(decimal.NewFromInt(-100)) || over.PercentUsed != 125 {
		t.Errorf("over budget = %s remaining, %d%%; want -100, 125%%", over.Remaining, over.PercentUsed)
	}
}
