package handler

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/homeledger/internal/inventory"
	"github.com/dukerupert/homeledger/internal/model"
)

type InventoryHandler struct {
	items  *inventory.Repository
	logger *slog.Logger
}

func NewInventoryHandler(items *inventory.Repository, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{items: items, logger: logger}
}

type inventoryItemRequest struct {
	Name              string           `json:"name"`
	Quantity          int              `json:"quantity"`
	Unit              string           `json:"unit"`
	Category          *string          `json:"category"`
	Store             *string          `json:"store"`
	NextPurchaseValue *decimal.Decimal `json:"next_purchase_value"`
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	items, err := h.items.List(r.Context(), group)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	item, err := h.items.Get(r.Context(), group, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	group, actor := scope(r)
	var req inventoryItemRequest
	if !decode(w, r, &req) {
		return
	}

	item, err := h.items.Create(r.Context(), group, actor, model.InventoryItem{
		Name:              req.Name,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
		Category:          req.Category,
		Store:             req.Store,
		NextPurchaseValue: req.NextPurchaseValue,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// SetQuantity overwrites the stock level after a manual count.
func (h *InventoryHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	group, actor := scope(r)
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeMessage(w, http.StatusBadRequest, "quantity is required")
		return
	}

	id := r.PathValue("id")
	if err := h.items.SetQuantity(r.Context(), group, actor, id, *req.Quantity); err != nil {
		writeError(w, h.logger, err)
		return
	}
	item, err := h.items.Get(r.Context(), group, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	group, _ := scope(r)
	if err := h.items.Delete(r.Context(), group, r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
