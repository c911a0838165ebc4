package middleware

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"

	"sco-server/internal/shared/config"
)

type CORSMiddleware struct {
	*cors.Cors
}

func NewCORS() *CORSMiddleware {
	cfg := config.GlobalConfig
	logger := slog.With("component", "cors", "operation", "setup")

	allowedOrigins := []string{cfg.Frontend.URL}
	allowedMethods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}

	corsConfig := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		Debug:            cfg.Frontend.CORSDebug,
	})

	logger.Info("CORS middleware configured",
		"allowed_origins", allowedOrigins,
		"allowed_methods", allowedMethods,
		"debug_mode", cfg.Frontend.CORSDebug,
	)

	return &CORSMiddleware{corsConfig}
}

// OriginAllowed is the websocket upgrader's origin check, kept in line with
// the CORS policy.
func (c *CORSMiddleware) OriginAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == config.GlobalConfig.Frontend.URL
}

func (c *CORSMiddleware) Middleware(h http.Handler) http.Handler {
	return c.Cors.Handler(h)
}
