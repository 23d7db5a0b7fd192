package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSetSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "abc123", 24*time.Hour, false)

	got := rec.Header().Get("Set-Cookie")
	for _, want := range []string{"session=abc123", "Path=/", "Max-Age=86400", "HttpOnly", "SameSite=Lax"} {
		if !strings.Contains(got, want) {
			t.Errorf("Set-Cookie %q missing %q", got, want)
		}
	}
	if strings.Contains(got, "Secure") {
		t.Errorf("Set-Cookie %q should not be Secure", got)
	}
}

func TestClearSessionCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessionCookie(rec, true)

	got := rec.Header().Get("Set-Cookie")
	if !strings.Contains(got, "session=;") || !strings.Contains(got, "Max-Age=0") {
		t.Errorf("Set-Cookie = %q", got)
	}
	if !strings.Contains(got, "Secure") {
		t.Errorf("Set-Cookie %q should be Secure", got)
	}
}

func TestSessionToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := SessionToken(r); got != "" {
		t.Errorf("SessionToken = %q, want empty", got)
	}
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok"})
	if got := SessionToken(r); got != "tok" {
		t.Errorf("SessionToken = %q, want tok", got)
	}
}
