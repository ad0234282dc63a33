package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/safar/wareq/internal/clock"
)

type Server struct {
	db                *sql.DB
	clock             clock.Clock
	lowStockThreshold int
}

func NewServer(db *sql.DB, clk clock.Clock, lowStockThreshold int) *Server {
	return &Server{db: db, clock: clk, lowStockThreshold: lowStockThreshold}
}

func (s *Server) Routes(log zerolog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(log), recoverer)

	r.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.handleGetUser).Methods(http.MethodGet)

	s.partyRoutes(r, "/customers", customers)
	s.partyRoutes(r, "/suppliers", suppliers)

	r.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	r.HandleFunc("/items", s.handleCreateItem).Methods(http.MethodPost)
	r.HandleFunc("/items/low-stock", s.handleLowStockItems).Methods(http.MethodGet)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleGetItem).Methods(http.MethodGet)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleUpdateItem).Methods(http.MethodPut)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleDeleteItem).Methods(http.MethodDelete)
	r.HandleFunc("/items/{id:[0-9]+}/adjust", s.handleAdjustItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{id:[0-9]+}/movements", s.handleItemMovements).Methods(http.MethodGet)

	r.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/claim", s.handleClaimOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id:[0-9]+}", s.handleDeleteOrder).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id:[0-9]+}/status", s.handleUpdateOrderStatus).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id:[0-9]+}/movements", s.handleOrderMovements).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id:[0-9]+}/lines", s.handleAddOrderLine).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}/lines/{lineID:[0-9]+}", s.handleUpdateOrderLine).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id:[0-9]+}/lines/{lineID:[0-9]+}", s.handleRemoveOrderLine).Methods(http.MethodDelete)

	r.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
