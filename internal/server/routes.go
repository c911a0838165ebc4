package server

import (
	"log/slog"
	"net/http"

	"sco-server/internal/game"
	gameHandlers "sco-server/internal/game/handlers"
	"sco-server/internal/middleware"
	"sco-server/internal/realtime"
	serverHandlers "sco-server/internal/server/handlers"
)

type Routes struct {
	gameService *game.Service
	hub         *realtime.Hub
	limiter     *middleware.RateLimiter
	health      *serverHandlers.HealthHandler
	logger      *slog.Logger
}

func NewRoutes(gameService *game.Service, hub *realtime.Hub, limiter *middleware.RateLimiter, health *serverHandlers.HealthHandler, logger *slog.Logger) *Routes {
	return &Routes{
		gameService: gameService,
		hub:         hub,
		limiter:     limiter,
		health:      health,
		logger:      logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")

	mux := http.NewServeMux()

	gameHandler := gameHandlers.NewGameHandler(r.gameService, r.hub)
	catalogHandler := serverHandlers.NewCatalogHandler(r.gameService.Catalog())
	member := middleware.NewGameAccessMiddleware(r.gameService).Require

	// Public endpoints
	mux.Handle("GET /api/server/health", r.health)
	mux.Handle("GET /api/catalog", catalogHandler)

	// Authenticated endpoints
	mux.Handle("GET /api/games", middleware.JWTMiddleware(http.HandlerFunc(gameHandler.ListGames)))
	mux.Handle("GET /api/games/{id}", middleware.JWTMiddleware(http.HandlerFunc(gameHandler.GetGame)))

	// Game members only
	mux.Handle("GET /api/games/{id}/state", member(http.HandlerFunc(gameHandler.GetState)))
	mux.Handle("GET /api/games/{id}/actions", member(http.HandlerFunc(gameHandler.GetActions)))
	mux.Handle("PUT /api/games/{id}/actions", member(r.limiter.Middleware(http.HandlerFunc(gameHandler.PutActions))))
	mux.Handle("GET /api/games/{id}/log", member(http.HandlerFunc(gameHandler.GetLog)))
	mux.Handle("GET /api/games/{id}/preview", member(http.HandlerFunc(gameHandler.Preview)))
	mux.Handle("GET /api/games/{id}/available", member(http.HandlerFunc(gameHandler.Available)))
	mux.Handle("GET /api/games/{id}/events", member(http.HandlerFunc(gameHandler.Events)))

	// Admin-only endpoints
	mux.Handle("POST /api/games", middleware.RequireAdmin(http.HandlerFunc(gameHandler.CreateGame)))
	mux.Handle("POST /api/games/{id}/turns", middleware.RequireAdmin(http.HandlerFunc(gameHandler.ResolveTurn)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/catalog"},
		"member_endpoints", []string{"state", "actions", "log", "preview", "available", "events"},
		"admin_endpoints", []string{"POST /api/games", "POST /api/games/{id}/turns"},
	)

	return mux
}
