package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/bill"
	"github.com/dukerupert/homeledger/internal/model"
)

type BillHandler struct {
	bills  *bill.Repository
	engine *bill.Engine
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewBillHandler(bills *bill.Repository, engine *bill.Engine, loc *time.Location, logger *slog.Logger) *BillHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BillHandler{bills: bills, engine: engine, loc: loc, now: time.Now, logger: logger}
}

type billRequest struct {
	Name                   string          `json:"name"`
	Value                  decimal.Decimal `json:"value"`
	Category               string          `json:"category"`
	DueDate                string          `json:"due_date"`
	IsRecurring            bool            `json:"is_recurring"`
	Frequency              *string         `json:"frequency"`
	Interval               *int            `json:"interval"`
	EndDate                *string         `json:"end_date"`
	NotificationDaysBefore int             `json:"notification_days_before"`
}

type billResponse struct {
	model.BillReminder
	Status bill.Status `json:"status"`
}

func (h *BillHandler) respond(b model.BillReminder) billResponse {
	return billResponse{BillReminder: b, Status: bill.ComputeStatus(b, h.now().In(h.loc))}
}

func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	bills, err := h.bills.List(r.Context(), group)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]billResponse, len(bills))
	for i, b := range bills {
		out[i] = h.respond(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	b, err := h.bills.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(*b))
}

func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	var req billRequest
	if !decode(w, r, &req) {
		return
	}

	due, ok := parseDate(req.DueDate, h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD or RFC 3339")
		return
	}
	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		t, ok := parseDate(*req.EndDate, h.loc)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD or RFC 3339")
			return
		}
		end = &t
	}

	b, err := h.bills.Create(r.Context(), group, model.BillReminder{
		Name:                   req.Name,
		Value:                  req.Value,
		Category:               req.Category,
		DueDate:                due,
		IsRecurring:            req.IsRecurring,
		Frequency:              req.Frequency,
		Interval:               req.Interval,
		EndDate:                end,
		NotificationDaysBefore: req.NotificationDaysBefore,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.respond(*b))
}

func (h *BillHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	if err := h.bills.Delete(r.Context(), group, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pay records the bill's expense and moves it to its next occurrence.
func (h *BillHandler) Pay(w http.ResponseWriter, r *http.Request) {
	group, actor := scope(r)
	current, err := h.bills.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.engine.MarkPaid(r.Context(), group, actor, *current); err != nil {
		writeError(w, h.logger, err)
		return
	}
	b, err := h.bills.Get(r.Context(), group, current.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(*b))
}

// Occurrences projects due dates between ?from= and ?to=.
func (h *BillHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	from, okFrom := parseDay(r, "from", h.loc)
	to, okTo := parseDay(r, "to", h.loc)
	if !okFrom || !okTo || to.Before(from) {
		writeMessage(w, http.StatusBadRequest, "from and to dates are required")
		return
	}

	b, err := h.bills.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	dates := bill.Occurrences(*b, from, to.AddDate(0, 0, 1).Add(-time.Nanosecond), h.loc)
	if dates == nil {
		dates = []time.Time{}
	}
	writeJSON(w, http.StatusOK, dates)
}
