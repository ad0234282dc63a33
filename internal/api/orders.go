package api

import (
	"errors"
	"net/http"

	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
	"github.com/safar/wareq/internal/store"
	"github.com/shopspring/decimal"
)

// orderResponse adds the derived order fields clients display.
type orderResponse struct {
	*models.Order
	TotalAmount  decimal.Decimal `json:"total_amount"`
	IsEditable   bool            `json:"is_editable"`
	CanBeDeleted bool            `json:"can_be_deleted"`
}

func newOrderResponse(o *models.Order) orderResponse {
	return orderResponse{
		Order:        o,
		TotalAmount:  o.TotalAmount(),
		IsEditable:   o.IsEditable(),
		CanBeDeleted: o.CanBeDeleted(),
	}
}

type orderLineRequest struct {
	ItemID   int64            `json:"item_id"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

func (req orderLineRequest) toStore() store.OrderLineRequest {
	return store.OrderLineRequest{ItemID: req.ItemID, Quantity: req.Quantity, Price: req.Price}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind       models.OrderKind   `json:"order_type"`
		CustomerID *int64             `json:"customer_id"`
		SupplierID *int64             `json:"supplier_id"`
		Lines      []orderLineRequest `json:"lines"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	create := store.CreateOrderRequest{
		Kind:       req.Kind,
		CustomerID: req.CustomerID,
		SupplierID: req.SupplierID,
	}
	for _, l := range req.Lines {
		create.Lines = append(create.Lines, l.toStore())
	}

	order, err := store.CreateOrder(r.Context(), s.db, s.clock, create)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.OrderFilter{
		Kind:   models.OrderKind(q.Get("order_type")),
		Status: models.OrderStatus(q.Get("status")),
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid order type")
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	cursor, ok := cursorParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid cursor")
		return
	}

	page, err := store.ListOrdersCursor(r.Context(), s.db, filter, cursor, queryInt(r, "limit", store.DefaultPageSize))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	orders := page.Items.([]models.Order)
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	page.Items = out

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	order, err := store.GetOrder(r.Context(), s.db, id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newOrderResponse(order))
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	actor, err := actorFrom(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := store.UpdateOrderStatus(r.Context(), s.db, s.clock, id, req.Status, actor)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newOrderResponse(order))
}

// handleClaimOrder hands the oldest pending order of the requested kind to
// the caller and moves it to PROCESSING. 204 means nothing is waiting.
func (s *Server) handleClaimOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	kind := models.OrderKind(r.URL.Query().Get("order_type"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid order type")
		return
	}

	order, err := store.ClaimNextPendingOrder(r.Context(), s.db, s.clock, kind, actor)
	if errors.Is(err, database.ErrOrderNotFound) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newOrderResponse(order))
}

func (s *Server) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	if err := store.DeleteOrder(r.Context(), s.db, id); err != nil {
		respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOrderMovements(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	if _, err := store.GetOrder(r.Context(), s.db, id); err != nil {
		respondErr(w, r, err)
		return
	}

	movements, err := store.ListOrderMovements(r.Context(), s.db, id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, movements)
}

func (s *Server) handleAddOrderLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req orderLineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	line, err := store.AddOrderLine(r.Context(), s.db, s.clock, id, req.toStore())
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, line)
}

func (s *Server) handleUpdateOrderLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	lineID, lineOK := pathID(r, "lineID")
	if !ok || !lineOK {
		respondError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	line, err := store.UpdateOrderLine(r.Context(), s.db, s.clock, id, lineID, req.Quantity)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, line)
}

func (s *Server) handleRemoveOrderLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	lineID, lineOK := pathID(r, "lineID")
	if !ok || !lineOK {
		respondError(w, http.StatusBadRequest, "Invalid ID")
		return
	}

	if err := store.RemoveOrderLine(r.Context(), s.db, s.clock, id, lineID); err != nil {
		respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
