package api

import (
	"net/http"

	"github.com/safar/wareq/internal/models"
	"github.com/safar/wareq/internal/store"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string      `json:"email"`
		Name  string      `json:"name"`
		Role  models.Role `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := store.CreateUser(r.Context(), s.db, req.Email, req.Name, req.Role)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	result, err := store.ListUsers(r.Context(), s.db, listParams(r))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := store.GetUser(r.Context(), s.db, id)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetDashboardStats(r.Context(), s.db, s.lowStockThreshold)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	orders := make([]orderResponse, 0, len(stats.RecentOrders))
	for i := range stats.RecentOrders {
		orders = append(orders, newOrderResponse(&stats.RecentOrders[i]))
	}

	respondJSON(w, http.StatusOK, struct {
		*store.DashboardStats
		RecentOrders []orderResponse `json:"recent_orders"`
	}{stats, orders})
}
