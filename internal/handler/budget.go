package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/budget"
	"github.com/dukerupert/homeledger/internal/model"
	"github.com/dukerupert/homeledger/internal/websocket"
)

type BudgetHandler struct {
	budgets *budget.Repository
	service *budget.Service
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

func NewBudgetHandler(budgets *budget.Repository, svc *budget.Service, loc *time.Location, logger *slog.Logger) *BudgetHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BudgetHandler{budgets: budgets, service: svc, loc: loc, now: time.Now, logger: logger}
}

type budgetRequest struct {
	Name         string          `json:"name"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Categories   []string        `json:"categories"`
	MonthYear    string          `json:"month_year"`
}

func (req budgetRequest) budget() model.Budget {
	return model.Budget{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Categories:   req.Categories,
		MonthYear:    req.MonthYear,
		Type:         model.BudgetMonthly,
	}
}

func (h *BudgetHandler) month(r *http.Request) string {
	if m := r.URL.Query().Get("month"); m != "" {
		return m
	}
	return h.now().In(h.loc).Format("2006-01")
}

// List returns the month's budgets with their usage. The month defaults to
// the current one.
func (h *BudgetHandler) List(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	budgets, err := h.budgets.ListMonth(r.Context(), group, h.month(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	statuses := make([]budget.Status, 0, len(budgets))
	for _, b := range budgets {
		st, err := h.service.Status(r.Context(), group, b)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		statuses = append(statuses, st)
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (h *BudgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	b, err := h.budgets.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.service.Status(r.Context(), group, *b)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *BudgetHandler) Create(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	var req budgetRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.budgets.Create(r.Context(), group, req.budget())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BudgetHandler) Update(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	current, err := h.budgets.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req budgetRequest
	if !decode(w, r, &req) {
		return
	}
	b := req.budget()
	b.ID = current.ID
	updated, err := h.budgets.Update(r.Context(), group, b)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BudgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	if err := h.budgets.Delete(r.Context(), group, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary totals income and expenses over ?month= or ?from=&to=.
func (h *BudgetHandler) Summary(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	rng, ok := period(r, h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "month or from/to dates are required")
		return
	}
	s, err := h.service.Summary(r.Context(), group, rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *BudgetHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	rng, ok := period(r, h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "month or from/to dates are required")
		return
	}
	shares, err := h.service.Breakdown(r.Context(), group, rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// Compare reports the month's totals against the month before.
func (h *BudgetHandler) Compare(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	cmp, err := h.service.CompareMonth(r.Context(), group, h.month(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// Watch streams the budget's status over a websocket, recomputed after
// every ledger change in its month.
func (h *BudgetHandler) Watch(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	b, err := h.budgets.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	statuses, err := h.service.WatchBudget(ctx, group, *b)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	websocket.Stream(w, r, statuses, h.logger)
}

// WatchSummary streams the totals of ?month= or ?from=&to= over a
// websocket, recomputed after every ledger change in the period.
func (h *BudgetHandler) WatchSummary(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	rng, ok := period(r, h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "month or from/to dates are required")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	summaries, err := h.service.WatchSummary(ctx, group, rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	websocket.Stream(w, r, summaries, h.logger)
}
