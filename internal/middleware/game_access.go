package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"sco-server/internal/shared/errors"
	"sco-server/internal/shared/response"
)

type MembershipChecker interface {
	IsMember(ctx context.Context, gameID, playerID string) (bool, error)
}

// GameAccessMiddleware lets a request through only when the authenticated
// player takes part in the game named by the {id} path segment.
type GameAccessMiddleware struct {
	members MembershipChecker
}

func NewGameAccessMiddleware(members MembershipChecker) *GameAccessMiddleware {
	return &GameAccessMiddleware{members: members}
}

func (m *GameAccessMiddleware) Require(next http.Handler) http.Handler {
	return JWTMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "game_access",
			"method", r.Method,
			"path", r.URL.Path,
		)

		claims := GetUserFromContext(r)
		if claims == nil {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		gameID := r.PathValue("id")
		if gameID == "" {
			response.Error(w, r, logger, errors.Validation("game ID is required"))
			return
		}

		ok, err := m.members.IsMember(r.Context(), gameID, claims.PlayerID)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		if !ok {
			response.Error(w, r, logger, errors.Forbidden("game access required"))
			return
		}

		next.ServeHTTP(w, r)
	}))
}
