package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/adventskalender/internal/apperr"
	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/model"
	"github.com/dukerupert/adventskalender/internal/store"
)

const msgInvalidCredentials = "Invalid username or password"

// AuthOptions carries the session and hashing settings of AuthHandler.
type AuthOptions struct {
	SessionTTL   time.Duration
	BcryptCost   int
	CookieSecure bool
}

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	opts     AuthOptions
	ops      opLogger
}

func NewAuthHandler(users *store.UserStore, sessions *store.SessionStore, opts AuthOptions, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		opts:     opts,
		ops:      newOpLogger(logger, "auth"),
	}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

// bcrypt only accepts passwords up to 72 bytes.
const maxPasswordBytes = 72

func checkPasswordBytes(password string) error {
	if len(password) > maxPasswordBytes {
		return apperr.Validation("password must be at most 72 bytes long")
	}
	return nil
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionUserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "register"

	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ops.fail(w, r, op, err)
		return
	}
	if err := checkPasswordBytes(req.Password); err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	hash, err := auth.HashPassword(req.Password, h.opts.BcryptCost)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to register user", err))
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, hash, model.RoleUser)
	if errors.Is(err, store.ErrDuplicateUsername) {
		h.ops.fail(w, r, op, apperr.Conflict("Username already taken"), "username", req.Username)
		return
	}
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to register user", err))
		return
	}

	h.ops.success(r, op, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    user,
	})
}

// Login answers unknown usernames and wrong passwords identically, and pays
// for a bcrypt comparison in both cases.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "login"

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to log in", err))
		return
	}
	if user == nil {
		auth.BurnVerify(req.Password)
		h.ops.fail(w, r, op, apperr.Authentication(msgInvalidCredentials))
		return
	}
	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		h.ops.fail(w, r, op, apperr.Authentication(msgInvalidCredentials), "user_id", user.ID)
		return
	}

	sess, err := h.sessions.Create(r.Context(), user.ID, h.opts.SessionTTL)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to log in", err))
		return
	}

	auth.SetSessionCookie(w, sess.Token, h.opts.SessionTTL, h.opts.CookieSecure)
	h.ops.success(r, op, "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user,
	})
}

// Logout deletes the presented session, if any, and always clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "logout"

	if token := auth.SessionToken(r); token != "" {
		if err := h.sessions.Delete(r.Context(), token); err != nil {
			h.ops.fail(w, r, op, apperr.Internal("failed to log out", err))
			return
		}
	}

	auth.ClearSessionCookie(w, h.opts.CookieSecure)
	h.ops.success(r, op)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Session reports whether the request carries a live session. A stale
// cookie is cleared.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	token := auth.SessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	su, err := h.sessions.Validate(r.Context(), token)
	if err != nil {
		h.ops.fail(w, r, "session", apperr.Internal("failed to check session", err))
		return
	}
	if su == nil {
		auth.ClearSessionCookie(w, h.opts.CookieSecure)
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": sessionUserResponse{
			ID:       su.UserID,
			Username: su.Username,
			Role:     su.Role,
		},
	})
}
