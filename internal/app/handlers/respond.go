package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/elite-cart/internal/service"
	"github.com/linemk/elite-cart/internal/storage"
)

var validate = validator.New()

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, errorResponse{Error: msg})
}

// writeServiceError maps a service-layer error onto the HTTP taxonomy.
// Unrecognized errors come out as a generic 500 so the store's internals
// never reach the client.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		invalidItem  *service.InvalidOrderItemError
		missing      *service.ProductNotFoundError
		insufficient *service.InsufficientStockError
	)

	switch {
	case errors.As(err, &invalidItem):
		writeError(w, log, http.StatusBadRequest, invalidItem.Error())
	case errors.As(err, &missing):
		writeError(w, log, http.StatusNotFound, missing.Error())
	case errors.As(err, &insufficient):
		writeError(w, log, http.StatusBadRequest, insufficient.Error())
	case errors.Is(err, service.ErrEmptyOrder):
		writeError(w, log, http.StatusBadRequest, service.ErrEmptyOrder.Error())
	case errors.Is(err, storage.ErrNoFieldsToUpdate):
		writeError(w, log, http.StatusBadRequest, storage.ErrNoFieldsToUpdate.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, log, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, log, http.StatusForbidden, "unauthorized")
	case errors.Is(err, storage.ErrProductNotFound):
		writeError(w, log, http.StatusNotFound, storage.ErrProductNotFound.Error())
	case errors.Is(err, storage.ErrOrderNotFound):
		writeError(w, log, http.StatusNotFound, storage.ErrOrderNotFound.Error())
	case errors.Is(err, storage.ErrUserNotFound):
		writeError(w, log, http.StatusNotFound, storage.ErrUserNotFound.Error())
	case errors.Is(err, storage.ErrInsufficientStock):
		writeError(w, log, http.StatusBadRequest, storage.ErrInsufficientStock.Error())
	case errors.Is(err, storage.ErrEmailTaken):
		writeError(w, log, http.StatusConflict, storage.ErrEmailTaken.Error())
	default:
		writeError(w, log, http.StatusInternalServerError, "internal server error")
	}
}

// NotFoundHandler keeps unknown routes on the JSON error envelope.
func NotFoundHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, log, http.StatusNotFound, "endpoint not found")
	}
}
