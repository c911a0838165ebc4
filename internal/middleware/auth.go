package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sco-server/internal/auth"
	"sco-server/internal/shared/config"
	"sco-server/internal/shared/errors"
	"sco-server/internal/shared/response"
)

type contextKey string

const UserContextKey contextKey = "user"

const authCookie = "auth_token"

// JWTMiddleware accepts a bearer token or the auth_token cookie. Browsers
// cannot set headers on websocket upgrades, so the cookie stays supported.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		token := bearerToken(r)
		if token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := auth.ValidateJWT(config.GlobalConfig.Auth.JWTSecret, token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		logger.Debug("JWT authentication successful", "player_id", claims.PlayerID)
		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(authCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func GetUserFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
