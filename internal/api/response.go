package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/safar/wareq/internal/database"
	"github.com/safar/wareq/internal/models"
	"github.com/safar/wareq/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps a store or domain error onto a status code. Anything it
// does not recognise is logged and reported as a 500 without detail.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, status, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case models.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrSupplierNotFound),
		errors.Is(err, database.ErrItemNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrOrderLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrIllegalStatusTransition),
		errors.Is(err, models.ErrCannotFulfillOrder),
		errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrOrderNotEditable),
		errors.Is(err, models.ErrOrderNotDeletable),
		errors.Is(err, database.ErrOptimisticLockFailed),
		errors.Is(err, database.ErrDuplicate),
		errors.Is(err, database.ErrReferenced):
		return http.StatusConflict
	case errors.Is(err, database.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, target interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// actorFrom reads the acting user id from the X-User-ID header. A missing
// header means an anonymous actor; a malformed one is a client error.
func actorFrom(r *http.Request) (*int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, models.NewValidationError("X-User-ID", "must be a positive integer")
	}
	return &id, nil
}

func listParams(r *http.Request) store.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	return store.ListParams{
		Page:     page,
		PageSize: pageSize,
		Search:   q.Get("search"),
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return fallback
	}
	return v
}

func cursorParam(r *http.Request) (string, bool) {
	cursor := r.URL.Query().Get("cursor")
	if cursor == "" {
		return "", true
	}
	if _, err := store.DecodeCursor(cursor); err != nil {
		return "", false
	}
	return cursor, true
}
