package handlers

import (
	"log/slog"
	"net/http"
)

// HealthResponse reports service liveness
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthHandler handles GET /api/health
func HealthHandler(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, log, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Service: "EliteCart API",
		})
	}
}
