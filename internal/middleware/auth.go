package middleware

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/store"
)

// RequireAuth validates the session cookie and populates AuthContext.
// Requests without a live session get a 401 JSON error.
func RequireAuth(sessionStore *store.SessionStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.SessionToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			su, err := sessionStore.Validate(r.Context(), token)
			if err != nil {
				logger.Error("session lookup failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if su == nil {
				writeError(w, http.StatusUnauthorized, "Session expired or invalid")
				return
			}

			ac := auth.AuthContext{
				UserID:   su.UserID,
				Username: su.Username,
				Role:     su.Role,
				Token:    token,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated user has the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
