package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/adventskalender/internal/config"
	"github.com/dukerupert/adventskalender/internal/handler"
	"github.com/dukerupert/adventskalender/internal/middleware"
	"github.com/dukerupert/adventskalender/internal/store"
	ws "github.com/dukerupert/adventskalender/internal/websocket"
)

type Server struct {
	db           *sql.DB
	cfg          *config.Config
	hub          *ws.Hub
	authH        *handler.AuthHandler
	calendarH    *handler.CalendarHandler
	pouchH       *handler.PouchHandler
	adminH       *handler.AdminHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	calendarStore := store.NewCalendarStore(db)
	pouchStore := store.NewPouchStore(db)

	authOpts := handler.AuthOptions{
		SessionTTL:   cfg.Auth.SessionTTL(),
		BcryptCost:   cfg.Auth.BcryptCost,
		CookieSecure: cfg.Auth.CookieSecure,
	}

	return &Server{
		db:           db,
		cfg:          cfg,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, authOpts, logger),
		calendarH:    handler.NewCalendarHandler(calendarStore, pouchStore, hub, logger),
		pouchH:       handler.NewPouchHandler(pouchStore, hub, logger),
		adminH:       handler.NewAdminHandler(userStore, cfg.Auth.BcryptCost, logger),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /api/auth/session", s.authH.Session)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.logger.With("component", "auth"))
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	var h http.Handler = outerMux
	h = middleware.CORS(s.cfg.CORS.AllowedOrigins)(h)
	h = middleware.Recover(s.logger.With("component", "recover"))(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.ClientIP(s.cfg.RateLimit.TrustProxyHeaders), s.cfg.RateLimit.AuthPerMinute, time.Minute)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Calendars
	mux.HandleFunc("GET /api/calendars", s.calendarH.List)
	mux.HandleFunc("POST /api/calendars", s.calendarH.Create)
	mux.HandleFunc("GET /api/calendars/{id}", s.calendarH.Get)
	mux.HandleFunc("PUT /api/calendars/{id}", s.calendarH.Update)
	mux.HandleFunc("DELETE /api/calendars/{id}", s.calendarH.Delete)
	mux.HandleFunc("POST /api/calendars/{id}/shuffle", s.calendarH.Shuffle)
	mux.HandleFunc("GET /api/calendars/{id}/export", s.calendarH.Export)
	mux.HandleFunc("GET /api/calendars/{id}/pouches", s.calendarH.Pouches)

	// Pouches
	mux.HandleFunc("PUT /api/pouches/{id}", s.pouchH.Update)
	mux.HandleFunc("PATCH /api/pouches/{id}/toggle", s.pouchH.Toggle)

	// Admin
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }
	mux.Handle("GET /api/admin/users", admin(s.adminH.ListUsers))
	mux.Handle("POST /api/admin/users", admin(s.adminH.CreateUser))
	mux.Handle("DELETE /api/admin/users/{id}", admin(s.adminH.DeleteUser))
	mux.Handle("PATCH /api/admin/users/{id}/role", admin(s.adminH.UpdateRole))

	// Live updates
	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub, s.cfg.CORS.AllowedOrigins, s.logger.With("component", "websocket")))
}

// Sweep deletes expired sessions and stale rate-limit windows once.
func (s *Server) Sweep(ctx context.Context) {
	n, err := s.sessionStore.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("cleanup expired sessions", "error", err)
	} else if n > 0 {
		s.logger.Info("cleaned up expired sessions", "count", n)
	}
	if n := s.rateLimiter.Cleanup(); n > 0 {
		s.logger.Debug("cleaned up rate limit windows", "count", n)
	}
}

// RunCleanup calls Sweep every interval until ctx is cancelled. It runs in
// its own goroutine and never blocks request handling.
func (s *Server) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}
