package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/adventskalender/internal/apperr"
	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/export"
	"github.com/dukerupert/adventskalender/internal/model"
	"github.com/dukerupert/adventskalender/internal/store"
	"github.com/dukerupert/adventskalender/internal/websocket"
)

const msgCalendarNotFound = "Calendar not found"

type CalendarHandler struct {
	calendars *store.CalendarStore
	pouches   *store.PouchStore
	hub       *websocket.Hub
	ops       opLogger
	now       func() time.Time
}

func NewCalendarHandler(cs *store.CalendarStore, ps *store.PouchStore, hub *websocket.Hub, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{
		calendars: cs,
		pouches:   ps,
		hub:       hub,
		ops:       newOpLogger(logger, "calendar"),
		now:       time.Now,
	}
}

func (h *CalendarHandler) publish(userID int64, action string, calendarID int64) {
	if h.hub != nil {
		h.hub.Publish(userID, websocket.NewMessage(websocket.EntityCalendar, action, calendarID, nil))
	}
}

type calendarRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// decodeCalendar trims both fields before validating, so a blank name is
// rejected as missing.
func decodeCalendar(w http.ResponseWriter, r *http.Request) (*calendarRequest, error) {
	var req calendarRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateStruct(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ownedCalendarID parses the path id and checks that the caller owns the
// calendar. Calendars of other users are reported as not found.
func (h *CalendarHandler) ownedCalendarID(r *http.Request) (int64, error) {
	id, err := parseIDParam(r)
	if err != nil {
		return 0, err
	}
	owned, err := h.calendars.IsOwnedByUser(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		return 0, apperr.Internal("failed to load calendar", err)
	}
	if !owned {
		return 0, apperr.NotFound(msgCalendarNotFound)
	}
	return id, nil
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	calendars, err := h.calendars.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.ops.fail(w, r, "list_calendars", apperr.Internal("failed to list calendars", err))
		return
	}
	if calendars == nil {
		calendars = []model.Calendar{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendars": calendars})
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "create_calendar"
	userID := auth.UserID(r.Context())

	req, err := decodeCalendar(w, r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	cal, err := h.calendars.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to create calendar", err))
		return
	}

	h.ops.success(r, op, "calendar_id", cal.ID, "user_id", userID)
	h.publish(userID, websocket.ActionCreated, cal.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"calendar": cal})
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "get_calendar"

	id, err := h.ownedCalendarID(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	cal, err := h.calendars.GetByID(r.Context(), id)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to load calendar", err))
		return
	}
	if cal == nil {
		h.ops.fail(w, r, op, apperr.NotFound(msgCalendarNotFound))
		return
	}
	cal.Progress = model.NewProgress(cal.PackedCount, cal.TotalPouches)
	writeJSON(w, http.StatusOK, map[string]any{"calendar": cal})
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "update_calendar"
	userID := auth.UserID(r.Context())

	id, err := h.ownedCalendarID(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	req, err := decodeCalendar(w, r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	ok, err := h.calendars.Update(r.Context(), id, req.Name, req.Description)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to update calendar", err))
		return
	}
	if !ok {
		h.ops.fail(w, r, op, apperr.NotFound(msgCalendarNotFound))
		return
	}

	cal, err := h.calendars.GetByID(r.Context(), id)
	if err != nil || cal == nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to load calendar", err))
		return
	}

	h.ops.success(r, op, "calendar_id", id)
	h.publish(userID, websocket.ActionUpdated, id)
	writeJSON(w, http.StatusOK, map[string]any{"calendar": cal})
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "delete_calendar"
	userID := auth.UserID(r.Context())

	id, err := h.ownedCalendarID(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	ok, err := h.calendars.Delete(r.Context(), id)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to delete calendar", err))
		return
	}
	if !ok {
		h.ops.fail(w, r, op, apperr.NotFound(msgCalendarNotFound))
		return
	}

	h.ops.success(r, op, "calendar_id", id)
	h.publish(userID, websocket.ActionDeleted, id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Calendar deleted"})
}

func (h *CalendarHandler) Pouches(w http.ResponseWriter, r *http.Request) {
	const op = "list_pouches"

	id, err := h.ownedCalendarID(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	pouches, err := h.pouches.ListByCalendar(r.Context(), id)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to load pouches", err))
		return
	}
	if pouches == nil {
		pouches = []model.Pouch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pouches": pouches})
}

func (h *CalendarHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	const op = "shuffle_pouches"
	userID := auth.UserID(r.Context())

	id, err := h.ownedCalendarID(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	pouches, err := h.pouches.Shuffle(r.Context(), id)
	if errors.Is(err, store.ErrPouchIntegrity) {
		h.ops.fail(w, r, op, apperr.Integrity("Calendar does not have exactly 24 pouches", err), "calendar_id", id)
		return
	}
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to shuffle pouches", err))
		return
	}

	h.ops.success(r, op, "calendar_id", id)
	h.publish(userID, websocket.ActionShuffled, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Pouches shuffled",
		"pouches": pouches,
	})
}

// Export streams the calendar as a JSON or CSV attachment. The format query
// parameter defaults to json.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "export_calendar"

	id, err := h.ownedCalendarID(r)
	if err != nil {
		h.ops.fail(w, r, op, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	if !export.ValidFormat(format) {
		h.ops.fail(w, r, op, apperr.Validation("Invalid format, use 'json' or 'csv'"))
		return
	}

	snapshot, err := h.calendars.Export(r.Context(), id)
	if err != nil {
		h.ops.fail(w, r, op, apperr.Internal("failed to export calendar", err))
		return
	}
	if snapshot == nil {
		h.ops.fail(w, r, op, apperr.NotFound(msgCalendarNotFound))
		return
	}

	filename := export.Filename(snapshot.Calendar.Name, h.now(), format)
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, snapshot, format); err != nil {
		h.ops.logger.ErrorContext(r.Context(), "export write failed", "calendar_id", id, "error", err)
		return
	}
	h.ops.success(r, op, "calendar_id", id, "format", format)
}
