package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/ledger"
	"github.com/dukerupert/homeledger/internal/model"
)

type LedgerHandler struct {
	ledger *ledger.Ledger
	loc    *time.Location
	logger *slog.Logger
}

func NewLedgerHandler(l *ledger.Ledger, loc *time.Location, logger *slog.Logger) *LedgerHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerHandler{ledger: l, loc: loc, logger: logger}
}

type transactionRequest struct {
	Value       decimal.Decimal       `json:"value"`
	Type        model.TransactionType `json:"type"`
	Category    string                `json:"category"`
	Description *string               `json:"description"`
	Date        string                `json:"date"`
}

func (req transactionRequest) transaction(loc *time.Location) (model.Transaction, bool) {
	date, ok := parseDate(req.Date, loc)
	if !ok {
		return model.Transaction{}, false
	}
	return model.Transaction{
		Value:       req.Value,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Date:        date,
	}, true
}

// parseDate accepts a calendar day in loc or an RFC 3339 timestamp.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// period reads ?month=YYYY-MM or ?from=&to= days from the query.
func period(r *http.Request, loc *time.Location) (ledger.Range, bool) {
	if month := r.URL.Query().Get("month"); month != "" {
		rng, err := ledger.MonthRange(month, loc)
		return rng, err == nil
	}
	from, ok := parseDay(r, "from", loc)
	if !ok {
		return ledger.Range{}, false
	}
	to, ok := parseDay(r, "to", loc)
	if !ok || to.Before(from) {
		return ledger.Range{}, false
	}
	return ledger.DayRange(from, to, loc), true
}

func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	rng, ok := period(r, h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "month or from/to dates are required")
		return
	}
	txs, err := h.ledger.ListRange(r.Context(), group, rng)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	tx, err := h.ledger.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *LedgerHandler) Record(w http.ResponseWriter, r *http.Request) {
	group, actor := scope(r)
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	tx, ok := req.transaction(h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
		return
	}
	tx.UserID = actor

	created, err := h.ledger.Record(r.Context(), group, tx)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *LedgerHandler) Update(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	current, err := h.ledger.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	tx, ok := req.transaction(h.loc)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD or RFC 3339")
		return
	}
	tx.ID, tx.UserID, tx.CreatedAt, tx.LinkedBillID = current.ID, current.UserID, current.CreatedAt, current.LinkedBillID

	if err := h.ledger.Update(r.Context(), group, tx); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *LedgerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	if err := h.ledger.Delete(r.Context(), group, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
