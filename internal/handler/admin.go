package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/adventskalender/internal/apperr"
	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/model"
	"github.com/dukerupert/adventskalender/internal/store"
)

const msgUserNotFound = "User not found"

type AdminHandler struct {
	users      *store.UserStore
	bcryptCost int
	ops        opLogger
}

func NewAdminHandler(users *store.UserStore, bcryptCost int, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		users:      users,
		bcryptCost: bcryptCost,
		ops:        newOpLogger(logger, "admin"),
	}
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		h.ops.fail(w, r, "list_users", apperr.Internal("failed to list users", err))
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser creates an account; the role defaults to user.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "admin_create_user"

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ops.fail(w, r, op, err)
		return
	}
	if err := checkPasswordBytes(req.Password); err != nil {
		h.ops.fail(w, r, op, err)
		return
	}
	role := model.RoleUser
	if req.Role == model.RoleAdmin {
		role = model.RoleAdmin
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to create user", err))
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, hash, role)
	if errors.Is(err, store.ErrDuplicateUsername) {
		h.ops.fail(w, r, op, apperr.Conflict("Username already exists"), "username", req.Username)
		return
	}
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to create user", err))
		return
	}

	h.ops.success(r, op, "user_id", user.ID, "role", role, "by", auth.UserID(r.Context()))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created",
		"user":    user,
	})
}

// DeleteUser removes an account; calendars, pouches and sessions cascade.
// Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	const op = "admin_delete_user"

	id, err := parseIDParam(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}
	if id == auth.UserID(r.Context()) {
		h.ops.fail(w, r, op, apperr.Validation("You cannot delete your own account"))
		return
	}

	ok, err := h.users.Delete(r.Context(), id)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to delete user", err))
		return
	}
	if !ok {
		h.ops.fail(w, r, op, apperr.NotFound(msgUserNotFound))
		return
	}

	h.ops.success(r, op, "user_id", id, "by", auth.UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

// UpdateRole changes a user's role. Admins cannot demote themselves, and a
// demoted user's sessions are revoked.
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	const op = "admin_update_role"

	id, err := parseIDParam(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	var req roleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.ops.fail(w, r, op, err)
		return
	}
	if id == auth.UserID(r.Context()) && req.Role == model.RoleUser {
		h.ops.fail(w, r, op, apperr.Validation("You cannot remove your own admin role"))
		return
	}

	var (
		user    *model.User
		revoked int64
	)
	if req.Role == model.RoleUser {
		user, revoked, err = h.users.Demote(r.Context(), id)
	} else {
		user, err = h.users.UpdateRole(r.Context(), id, req.Role)
	}
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to update role", err))
		return
	}
	if user == nil {
		h.ops.fail(w, r, op, apperr.NotFound(msgUserNotFound))
		return
	}
	if revoked > 0 {
		h.ops.logger.InfoContext(r.Context(), "sessions revoked", "user_id", id, "count", revoked)
	}

	h.ops.success(r, op, "user_id", id, "role", req.Role, "by", auth.UserID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Role updated",
		"user":    user,
	})
}
