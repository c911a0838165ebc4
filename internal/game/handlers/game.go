package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"sco-server/internal/action"
	"sco-server/internal/game"
	"sco-server/internal/middleware"
	"sco-server/internal/realtime"
	"sco-server/internal/shared/errors"
	"sco-server/internal/shared/response"
)

const maxBodyBytes = 1 << 20

type GameHandler struct {
	service *game.Service
	hub     *realtime.Hub
}

func NewGameHandler(service *game.Service, hub *realtime.Hub) *GameHandler {
	return &GameHandler{service: service, hub: hub}
}

// actionsDocument carries a batch and the turn it was written for. A PUT
// without a turn targets whichever turn is open.
type actionsDocument struct {
	Turn    *int         `json:"turn,omitempty"`
	Actions action.Batch `json:"actions"`
}

func playerID(r *http.Request) (string, error) {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		return "", errors.Unauthorized("authentication required")
	}
	return claims.PlayerID, nil
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "create_game")

	var req game.CreateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	created, err := h.service.CreateGame(r.Context(), req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "list_games")

	games, err := h.service.ListGames(r.Context())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, games)
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_game")

	g, err := h.service.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, g)
}

func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_game_state")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	view, err := h.service.GetGameState(r.Context(), r.PathValue("id"), player)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, view)
}

func (h *GameHandler) GetActions(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_actions")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	gameID := r.PathValue("id")
	batch, err := h.service.GetActions(r.Context(), gameID, player)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	g, err := h.service.GetGame(r.Context(), gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, actionsDocument{Turn: &g.CurrentTurn, Actions: batch})
}

// PutActions replaces the caller's batch for the open turn. An empty list
// withdraws it.
func (h *GameHandler) PutActions(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "put_actions")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var doc actionsDocument
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid actions document", err))
		return
	}

	gameID := r.PathValue("id")
	if doc.Turn != nil {
		err = h.service.SubmitActionsForTurn(r.Context(), gameID, player, *doc.Turn, doc.Actions)
	} else {
		err = h.service.SubmitActions(r.Context(), gameID, player, doc.Actions)
	}
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	g, err := h.service.GetGame(r.Context(), gameID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	response.Success(w, http.StatusOK, g)
}

func (h *GameHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "get_log")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	entries, err := h.service.GetLog(r.Context(), r.PathValue("id"), player)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, entries)
}

func (h *GameHandler) Preview(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "preview")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	projection, err := h.service.Preview(r.Context(), r.PathValue("id"), player)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, projection)
}

func (h *GameHandler) Available(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "available_items")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		response.Error(w, r, logger, errors.Validation("location query parameter is required"))
		return
	}

	items, err := h.service.Availability(r.Context(), r.PathValue("id"), player, location)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, items)
}

func (h *GameHandler) ResolveTurn(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "resolve_turn")

	result, err := h.service.ResolveTurn(r.Context(), r.PathValue("id"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "game_events")

	player, err := playerID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	h.hub.Serve(w, r, r.PathValue("id"), player)
}
