package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/database"
	"github.com/dukerupert/adventskalender/internal/model"
	"github.com/dukerupert/adventskalender/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupAuthMiddlewareDB(t *testing.T) (*store.SessionStore, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewSessionStore(db), store.NewUserStore(db)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func unreachable(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func TestRequireAuthNoCookie(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)
	handler := RequireAuth(ss, discardLogger())(unreachable(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendars", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", errorBody(t, rec))
}

func TestRequireAuthInvalidToken(t *testing.T) {
	ss, _ := setupAuthMiddlewareDB(t)
	handler := RequireAuth(ss, discardLogger())(unreachable(t))

	req := httptest.NewRequest(http.MethodGet, "/api/calendars", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "invalid-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthValidSession(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)
	ctx := context.Background()

	u, err := us.Create(ctx, "alice", "hash", model.RoleUser)
	require.NoError(t, err)
	sess, err := ss.Create(ctx, u.ID, time.Hour)
	require.NoError(t, err)

	var gotAC auth.AuthContext
	handler := RequireAuth(ss, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		require.True(t, ok, "expected AuthContext in request context")
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/calendars", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.AuthContext{UserID: u.ID, Username: "alice", Role: model.RoleUser, Token: sess.Token}, gotAC)
}

func TestRequireAuthRevokedSession(t *testing.T) {
	ss, us := setupAuthMiddlewareDB(t)
	ctx := context.Background()

	u, err := us.Create(ctx, "bob", "hash", model.RoleUser)
	require.NoError(t, err)
	sess, err := ss.Create(ctx, u.ID, time.Hour)
	require.NoError(t, err)
	_, err = ss.DeleteByUserID(ctx, u.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	RequireAuth(ss, discardLogger())(unreachable(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminAllowed(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: 1, Role: model.RoleAdmin})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdminForbidden(t *testing.T) {
	handler := RequireAdmin(unreachable(t))

	ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: 1, Role: model.RoleUser})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin privileges required", errorBody(t, rec))
}
