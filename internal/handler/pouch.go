package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/adventskalender/internal/apperr"
	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/model"
	"github.com/dukerupert/adventskalender/internal/store"
	"github.com/dukerupert/adventskalender/internal/websocket"
)

type PouchHandler struct {
	pouches *store.PouchStore
	hub     *websocket.Hub
	ops     opLogger
}

func NewPouchHandler(ps *store.PouchStore, hub *websocket.Hub, logger *slog.Logger) *PouchHandler {
	return &PouchHandler{pouches: ps, hub: hub, ops: newOpLogger(logger, "pouch")}
}

// pouchRequest replaces every editable field, so all three must be present.
type pouchRequest struct {
	Content  *string `json:"content" validate:"required,max=200"`
	Notes    *string `json:"notes" validate:"required,max=500"`
	IsPacked *bool   `json:"is_packed" validate:"required"`
}

const msgPouchFieldsRequired = "content, notes and is_packed are required"

func decodePouch(w http.ResponseWriter, r *http.Request) (*pouchRequest, error) {
	var req pouchRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	if req.Content == nil || req.Notes == nil || req.IsPacked == nil {
		return nil, apperr.Validation(msgPouchFieldsRequired)
	}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// pouchError maps the ownership outcome of a pouch write.
func pouchError(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Pouch not found")
	case errors.Is(err, store.ErrForbidden):
		return apperr.Authorization("Access to this pouch is denied")
	default:
		return apperr.Internal(msg, err)
	}
}

func (h *PouchHandler) publish(userID int64, p *model.Pouch) {
	if h.hub != nil {
		h.hub.Publish(userID, websocket.NewMessage(websocket.EntityPouch, websocket.ActionUpdated, p.ID,
			map[string]any{"calendar_id": p.CalendarID, "number": p.Number}))
	}
}

// Update overwrites content, notes and the packed flag.
func (h *PouchHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "update_pouch"
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	req, err := decodePouch(w, r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	pouch, err := h.pouches.UpdateForOwner(r.Context(), id, userID, *req.Content, *req.Notes, *req.IsPacked)
	if err != nil {
		h.ops.fail(w, r, op, pouchError(err, "failed to update pouch"), "pouch_id", id, "user_id", userID)
		return
	}

	h.ops.success(r, op, "pouch_id", id)
	h.publish(userID, pouch)
	writeJSON(w, http.StatusOK, map[string]any{"pouch": pouch})
}

func (h *PouchHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	const op = "toggle_pouch"
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	pouch, err := h.pouches.ToggleForOwner(r.Context(), id, userID)
	if err != nil {
		h.ops.fail(w, r, op, pouchError(err, "failed to toggle pouch"), "pouch_id", id, "user_id", userID)
		return
	}

	h.ops.success(r, op, "pouch_id", id, "is_packed", pouch.IsPacked)
	h.publish(userID, pouch)
	writeJSON(w, http.StatusOK, map[string]any{"pouch": pouch})
}
