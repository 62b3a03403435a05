package budget

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/homeledger/internal/apperr"
	"github.com/dukerupert/homeledger/internal/docstore"
	"github.com/dukerupert/homeledger/internal/model"
)

func Collection(groupID string) string {
	return docstore.Path(groupID, docstore.KindBudgets)
}

func fields(b model.Budget) docstore.Fields {
	return docstore.Fields{
		"name":         b.Name,
		"targetAmount": b.TargetAmount,
		"categories":   b.Categories,
		"monthYear":    b.MonthYear,
		"type":         b.Type,
	}
}

func fromDocument(d docstore.Document) model.Budget {
	return model.Budget{
		ID:           d.ID,
		Name:         d.String("name"),
		TargetAmount: d.Decimal("targetAmount"),
		Categories:   d.Strings("categories"),
		MonthYear:    d.String("monthYear"),
		Type:         d.String("type"),
	}
}

type Repository struct {
	docs docstore.Store
}

func NewRepository(docs docstore.Store) *Repository {
	return &Repository{docs: docs}
}

// normalize trims names and categories and drops repeated categories,
// keeping the first spelling.
func normalize(b model.Budget) model.Budget {
	b.Name = strings.TrimSpace(b.Name)
	if b.Type == "" {
		b.Type = model.BudgetMonthly
	}
	seen := make(map[string]bool, len(b.Categories))
	categories := make([]string, 0, len(b.Categories))
	for _, c := range b.Categories {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		categories = append(categories, c)
	}
	b.Categories = categories
	return b
}

func validate(op string, b model.Budget) error {
	if err := model.Validate(op, b); err != nil {
		return err
	}
	if !b.TargetAmount.IsPositive() {
		return apperr.Validation(op, "target_amount must be greater than 0")
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, groupID string, b model.Budget) (*model.Budget, error) {
	b = normalize(b)
	if err := validate("create budget", b); err != nil {
		return nil, err
	}
	b.ID = uuid.NewString()

	if err := r.docs.Commit(ctx, docstore.NewBatch().Create(Collection(groupID), b.ID, fields(b))); err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}
	return &b, nil
}

func (r *Repository) Update(ctx context.Context, groupID string, b model.Budget) (*model.Budget, error) {
	b = normalize(b)
	if err := validate("update budget", b); err != nil {
		return nil, err
	}

	if err := r.docs.Commit(ctx, docstore.NewBatch().Update(Collection(groupID), b.ID, fields(b))); err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return &b, nil
}

func (r *Repository) Delete(ctx context.Context, groupID, id string) error {
	if err := r.docs.Commit(ctx, docstore.NewBatch().Delete(Collection(groupID), id)); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, groupID, id string) (*model.Budget, error) {
	d, err := r.docs.Get(ctx, Collection(groupID), id)
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	b := fromDocument(*d)
	return &b, nil
}

// ListMonth returns the budgets of one month ordered by name.
func (r *Repository) ListMonth(ctx context.Context, groupID, monthYear string) ([]model.Budget, error) {
	docs, err := r.docs.Query(ctx, docstore.Query{
		Collection: Collection(groupID),
		Filters:    []docstore.Filter{docstore.Where("monthYear", docstore.Eq, monthYear)},
		OrderBy:    "name",
	})
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	budgets := make([]model.Budget, len(docs))
	for i, d := range docs {
		budgets[i] = fromDocument(d)
	}
	return budgets, nil
}
