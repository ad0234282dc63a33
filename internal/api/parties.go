package api

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/safar/wareq/internal/models"
	"github.com/safar/wareq/internal/store"
)

// partyStore adapts the customer and supplier store functions to one
// handler set.
type partyStore struct {
	create    func(ctx context.Context, db *sql.DB, p models.Party) (interface{}, error)
	get       func(ctx context.Context, db *sql.DB, id int64) (interface{}, error)
	list      func(ctx context.Context, db *sql.DB, params store.ListParams, activeOnly bool) (*store.OffsetPage, error)
	update    func(ctx context.Context, db *sql.DB, p models.Party) (interface{}, error)
	setActive func(ctx context.Context, db *sql.DB, id int64, active bool) error
	delete    func(ctx context.Context, db *sql.DB, id int64) error
}

var customers = partyStore{
	create: func(ctx context.Context, db *sql.DB, p models.Party) (interface{}, error) {
		return store.CreateCustomer(ctx, db, models.Customer{Party: p})
	},
	get: func(ctx context.Context, db *sql.DB, id int64) (interface{}, error) {
		return store.GetCustomer(ctx, db, id)
	},
	list: store.ListCustomers,
	update: func(ctx context.Context, db *sql.DB, p models.Party) (interface{}, error) {
		return store.UpdateCustomer(ctx, db, models.Customer{Party: p})
	},
	setActive: store.SetCustomerActive,
	delete:    store.DeleteCustomer,
}

var suppliers = partyStore{
	create: func(ctx context.Context, db *sql.DB, p models.Party) (interface{}, error) {
		return store.CreateSupplier(ctx, db, models.Supplier{Party: p})
	},
	get: func(ctx context.Context, db *sql.DB, id int64) (interface{}, error) {
		return store.GetSupplier(ctx, db, id)
	},
	list: store.ListSuppliers,
	update: func(ctx context.Context, db *sql.DB, p models.Party) (interface{}, error) {
		return store.UpdateSupplier(ctx, db, models.Supplier{Party: p})
	},
	setActive: store.SetSupplierActive,
	delete:    store.DeleteSupplier,
}

type partyRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (req partyRequest) party() models.Party {
	return models.Party{Name: req.Name, Email: req.Email, Phone: req.Phone, Address: req.Address}
}

func (s *Server) partyRoutes(r *mux.Router, prefix string, ps partyStore) {
	r.HandleFunc(prefix, s.handleListParties(ps)).Methods(http.MethodGet)
	r.HandleFunc(prefix, s.handleCreateParty(ps)).Methods(http.MethodPost)
	r.HandleFunc(prefix+"/{id:[0-9]+}", s.handleGetParty(ps)).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/{id:[0-9]+}", s.handleUpdateParty(ps)).Methods(http.MethodPut)
	r.HandleFunc(prefix+"/{id:[0-9]+}", s.handleDeleteParty(ps)).Methods(http.MethodDelete)
	r.HandleFunc(prefix+"/{id:[0-9]+}/active", s.handleSetPartyActive(ps)).Methods(http.MethodPatch)
}

func (s *Server) handleListParties(ps partyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active") == "true"

		page, err := ps.list(r.Context(), s.db, listParams(r), activeOnly)
		if err != nil {
			respondErr(w, r, err)
			return
		}

		respondJSON(w, http.StatusOK, page)
	}
}

func (s *Server) handleCreateParty(ps partyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req partyRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		created, err := ps.create(r.Context(), s.db, req.party())
		if err != nil {
			respondErr(w, r, err)
			return
		}

		respondJSON(w, http.StatusCreated, created)
	}
}

func (s *Server) handleGetParty(ps partyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid ID")
			return
		}

		p, err := ps.get(r.Context(), s.db, id)
		if err != nil {
			respondErr(w, r, err)
			return
		}

		respondJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleUpdateParty(ps partyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid ID")
			return
		}

		var req partyRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		p := req.party()
		p.ID = id

		updated, err := ps.update(r.Context(), s.db, p)
		if err != nil {
			respondErr(w, r, err)
			return
		}

		respondJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleSetPartyActive(ps partyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid ID")
			return
		}

		var req struct {
			Active *bool `json:"active"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Active == nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := ps.setActive(r.Context(), s.db, id, *req.Active); err != nil {
			respondErr(w, r, err)
			return
		}

		p, err := ps.get(r.Context(), s.db, id)
		if err != nil {
			respondErr(w, r, err)
			return
		}

		respondJSON(w, http.StatusOK, p)
	}
}

func (s *Server) handleDeleteParty(ps partyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			respondError(w, http.StatusBadRequest, "Invalid ID")
			return
		}

		if err := ps.delete(r.Context(), s.db, id); err != nil {
			respondErr(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
