package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sco-server/internal/shared/response"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Storage   string `json:"storage"`
}

// Pinger is implemented by *sql.DB and the database wrapper.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	backend string
	db      Pinger
}

// NewHealthHandler reports the storage backend by name; db may be nil for
// backends without a connection to check.
func NewHealthHandler(backend string, db Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, db: db}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	status := h.backend
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.Warn("Storage ping failed", "backend", h.backend, "error", err)
			status = h.backend + " (disconnected)"
		} else {
			status = h.backend + " (connected)"
		}
	}

	response.Success(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Storage:   status,
	})
}
