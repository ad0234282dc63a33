package api

import (
	"net/http"
	"strconv"

	"github.com/safar/wareq/internal/models"
	"github.com/safar/wareq/internal/store"
	"github.com/shopspring/decimal"
)

type itemRequest struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	SupplierID  *int64          `json:"supplier_id"`
	Version     int             `json:"version"`
}

func (req itemRequest) item() models.Item {
	return models.Item{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		SupplierID:  req.SupplierID,
		Version:     req.Version,
	}
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := store.CreateItem(r.Context(), s.db, s.clock, req.item(), actor)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, item)
}

// handleListItems answers ?sku= with the single matching item.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	if sku := r.URL.Query().Get("sku"); sku != "" {
		item, err := store.GetItemBySKU(r.Context(), s.db, sku)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, item)
		return
	}

	var supplierID *int64
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid supplier ID")
			return
		}
		supplierID = &id
	}

	result, err := store.ListItems(r.Context(), s.db, listParams(r), supplierID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleLowStockItems(w http.ResponseWriter, r *http.Request) {
	threshold := queryInt(r, "threshold", s.lowStockThreshold)

	items, err := store.ListLowStockItems(r.Context(), s.db, threshold, queryInt(r, "limit", store.DefaultPageSize))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	item, err := store.GetItem(r.Context(), s.db, id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}

// handleUpdateItem requires the version the client last read.
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item := req.item()
	item.ID = id

	updated, err := store.UpdateItem(r.Context(), s.db, item)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if err := store.DeleteItem(r.Context(), s.db, id); err != nil {
		respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdjustItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	actor, err := actorFrom(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req struct {
		Delta  int    `json:"delta"`
		Reason string `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	movement, err := store.AdjustItemStock(r.Context(), s.db, s.clock, id, req.Delta, req.Reason, actor)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, movement)
}

func (s *Server) handleItemMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid item ID")
		return
	}

	if _, err := store.GetItem(r.Context(), s.db, id); err != nil {
		respondErr(w, r, err)
		return
	}

	cursor, ok := cursorParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}

	page, err := store.ListMovements(r.Context(), s.db, id, cursor, queryInt(r, "limit", store.DefaultPageSize))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}
