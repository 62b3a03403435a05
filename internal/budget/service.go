package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
)

// Status is a budget with its derived usage for the budget's month.
type Status struct {
	Budget      model.Budget    `json:"budget"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"`
	PercentUsed int64           `json:"percent_used"`
}

func NewStatus(b model.Budget, spent decimal.Decimal) Status {
	s := Status{Budget: b, Spent: spent, Remaining: b.TargetAmount.Sub(spent)}
	if b.TargetAmount.IsPositive() {
		s.PercentUsed = percent(spent, b.TargetAmount).IntPart()
	}
	return s
}

// Service resolves periods in the household's time zone and applies the
// aggregate functions to ledger reads.
type Service struct {
	ledger *ledger.Ledger
	loc    *time.Location
	logger *slog.Logger
}

func NewService(l *ledger.Ledger, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: l, loc: loc, logger: logger.With("component", "budget")}
}

func (s *Service) BudgetSpent(ctx context.Context, groupID string, b model.Budget) (decimal.Decimal, error) {
	bounds, err := ledger.MonthRange(b.MonthYear, s.loc)
	if err != nil {
		return decimal.Zero, err
	}
	txs, err := s.ledger.ListRange(ctx, groupID, bounds)
	if err != nil {
		return decimal.Zero, fmt.Errorf("budget spent: %w", err)
	}
	return ComputeBudgetSpent(txs, b, bounds), nil
}

func (s *Service) Status(ctx context.Context, groupID string, b model.Budget) (Status, error) {
	spent, err := s.BudgetSpent(ctx, groupID, b)
	if err != nil {
		return Status{}, err
	}
	return NewStatus(b, spent), nil
}

// Range returns the day-normalized bounds for a user-chosen period.
func (s *Service) Range(from, to time.Time) ledger.Range {
	return ledger.DayRange(from, to, s.loc)
}

func (s *Service) Summary(ctx context.Context, groupID string, r ledger.Range) (Summary, error) {
	txs, err := s.ledger.ListRange(ctx, groupID, r)
	if err != nil {
		return Summary{}, fmt.Errorf("period summary: %w", err)
	}
	return ComputePeriodSummary(txs), nil
}

func (s *Service) Breakdown(ctx context.Context, groupID string, r ledger.Range) ([]CategoryShare, error) {
	txs, err := s.ledger.ListRange(ctx, groupID, r)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return ComputeCategoryBreakdown(txs), nil
}

// Change is a period-over-period percentage. It encodes to JSON as null
// when both periods were zero and as "+Infinity" or "-Infinity" when only
// the previous period was.
type Change struct {
	Percent float64
	Defined bool
}

func NewChange(current, previous decimal.Decimal) Change {
	pct, ok := ComputePeriodOverPeriodChange(current, previous)
	return Change{Percent: pct, Defined: ok}
}

func (c Change) MarshalJSON() ([]byte, error) {
	switch {
	case !c.Defined:
		return []byte("null"), nil
	case math.IsInf(c.Percent, 1):
		return []byte(`"+Infinity"`), nil
	case math.IsInf(c.Percent, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(c.Percent)
}

// MonthComparison compares a month's totals with the month before.
type MonthComparison struct {
	Current        Summary `json:"current"`
	Previous       Summary `json:"previous"`
	IncomeChange   Change  `json:"income_change"`
	ExpensesChange Change  `json:"expenses_change"`
}

func (s *Service) CompareMonth(ctx context.Context, groupID, monthYear string) (MonthComparison, error) {
	prev, err := ledger.PreviousMonth(monthYear)
	if err != nil {
		return MonthComparison{}, err
	}
	summaries := make([]Summary, 2)
	for i, m := range []string{monthYear, prev} {
		r, err := ledger.MonthRange(m, s.loc)
		if err != nil {
			return MonthComparison{}, err
		}
		if summaries[i], err = s.Summary(ctx, groupID, r); err != nil {
			return MonthComparison{}, err
		}
	}

	return MonthComparison{
		Current:        summaries[0],
		Previous:       summaries[1],
		IncomeChange:   NewChange(summaries[0].Income, summaries[1].Income),
		ExpensesChange: NewChange(summaries[0].Expenses, summaries[1].Expenses),
	}, nil
}

// WatchBudget streams the budget's status after every ledger change in its
// month. The channel closes when ctx is done.
func (s *Service) WatchBudget(ctx context.Context, groupID string, b model.Budget) (<-chan Status, error) {
	bounds, err := ledger.MonthRange(b.MonthYear, s.loc)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.SubscribeRange(ctx, groupID, bounds)
	if err != nil {
		return nil, fmt.Errorf("watch budget: %w", err)
	}
	return relay(ctx, txs, func(snapshot []model.Transaction) Status {
		return NewStatus(b, ComputeBudgetSpent(snapshot, b, bounds))
	}), nil
}

// WatchSummary streams the totals of r after every ledger change.
func (s *Service) WatchSummary(ctx context.Context, groupID string, r ledger.Range) (<-chan Summary, error) {
	txs, err := s.ledger.SubscribeRange(ctx, groupID, r)
	if err != nil {
		return nil, fmt.Errorf("watch summary: %w", err)
	}
	return relay(ctx, txs, ComputePeriodSummary), nil
}

func relay[T any](ctx context.Context, in <-chan []model.Transaction, reduce func([]model.Transaction) T) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		for snapshot := range in {
			select {
			case out <- reduce(snapshot):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
