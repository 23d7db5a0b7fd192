package websocket

import (
	"log/slog"
	"net/http"
	"net/url"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/adventskalender/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and streams the user's
// change notifications until the connection closes. allowedOrigins are full
// origins such as "http://localhost:5173".
func HandleWebSocket(hub *Hub, allowedOrigins []string, logger *slog.Logger) http.HandlerFunc {
	patterns := originPatterns(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			logger.Warn("websocket accept failed", "user_id", userID, "error", err)
			return
		}

		logger.Debug("websocket connected", "user_id", userID)
		NewClient(hub, conn, userID).Run(r.Context())
		logger.Debug("websocket disconnected", "user_id", userID)
	}
}

// originPatterns strips the scheme; coder/websocket matches on host.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
