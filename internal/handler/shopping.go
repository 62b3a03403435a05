package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/category"
	"github.com/dukerupert/homeledger/internal/model"
	"github.com/dukerupert/homeledger/internal/shopping"
)

type ShoppingHandler struct {
	items        *shopping.Repository
	orchestrator *shopping.Orchestrator
	logger       *slog.Logger
}

func NewShoppingHandler(items *shopping.Repository, o *shopping.Orchestrator, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{items: items, orchestrator: o, logger: logger}
}

type shoppingItemRequest struct {
	Name           string           `json:"name"`
	Quantity       int              `json:"quantity"`
	Unit           string           `json:"unit"`
	Category       *string          `json:"category"`
	Store          *string          `json:"store"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
}

func (req shoppingItemRequest) item() model.ShoppingItem {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	return model.ShoppingItem{
		Name:           strings.TrimSpace(req.Name),
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		Category:       req.Category,
		Store:          req.Store,
		EstimatedValue: req.EstimatedValue,
	}
}

func (h *ShoppingHandler) List(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	items, err := h.items.List(r.Context(), group)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ShoppingHandler) Create(w http.ResponseWriter, r *http.Request) {
	group, actor := scope(r)
	var req shoppingItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.orchestrator.Create(r.Context(), group, actor, req.item())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShoppingHandler) Update(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	current, err := h.items.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req shoppingItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orchestrator.Edit(r.Context(), group, *current, req.item()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondItem(w, r, group, current.ID)
}

// Toggle flips the item between bought and not bought.
func (h *ShoppingHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	group, actor := scope(r)
	current, err := h.items.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.orchestrator.ToggleBought(r.Context(), group, actor, *current); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respondItem(w, r, group, current.ID)
}

func (h *ShoppingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	current, err := h.items.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.orchestrator.Delete(r.Context(), group, *current); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestCategory proposes a category for the name query parameter.
func (h *ShoppingHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"category": category.Suggest(name)})
}

func (h *ShoppingHandler) respondItem(w http.ResponseWriter, r *http.Request, group, id string) {
	item, err := h.items.Get(r.Context(), group, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
