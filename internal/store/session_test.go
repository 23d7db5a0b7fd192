package store

import (
	"context"
	"testing"
	"time"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *UserStore) {
	t.Helper()
	db := openTestDB(t)
	return NewSessionStore(db), NewUserStore(db)
}

// fixedClock returns a clock whose time can be moved by the test.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestSessionCreate(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := mustCreateUser(t, us, "alice")

	sess, err := ss.Create(context.Background(), u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 { // 32 bytes hex-encoded
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", sess.UserID, u.ID)
	}
	if d := time.Until(sess.ExpiresAt); d < 59*time.Minute || d > time.Hour+time.Second {
		t.Errorf("expires in %v, want about 1h", d)
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := mustCreateUser(t, us, "alice")
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		sess, err := ss.Create(ctx, u.ID, time.Hour)
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if seen[sess.Token] {
			t.Fatalf("duplicate token %q", sess.Token)
		}
		seen[sess.Token] = true
	}
}

func TestSessionValidate(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := mustCreateUser(t, us, "alice")
	ctx := context.Background()

	created, _ := ss.Create(ctx, u.ID, time.Hour)

	su, err := ss.Validate(ctx, created.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if su == nil {
		t.Fatal("expected session user, got nil")
	}
	if su.UserID != u.ID {
		t.Errorf("user id = %d, want %d", su.UserID, u.ID)
	}
	if su.Role != "user" {
		t.Errorf("role = %q, want %q", su.Role, "user")
	}
	if su.Username != "alice" {
		t.Errorf("username = %q, want %q", su.Username, "alice")
	}
}

func TestSessionValidateUnknownToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	for _, token := range []string{"", "nonexistent"} {
		su, err := ss.Validate(context.Background(), token)
		if err != nil {
			t.Fatalf("validate %q: %v", token, err)
		}
		if su != nil {
			t.Errorf("expected nil for token %q", token)
		}
	}
}

func TestSessionExpiry(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := mustCreateUser(t, us, "alice")
	ctx := context.Background()

	clock, advance := fixedClock(time.Date(2026, 12, 1, 8, 0, 0, 0, time.UTC))
	ss.now = clock

	created, err := ss.Create(ctx, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	advance(59 * time.Minute)
	if su, _ := ss.Validate(ctx, created.Token); su == nil {
		t.Fatal("expected session to be valid before expiry")
	}

	// Validation must not slide the expiry.
	advance(time.Minute)
	if su, _ := ss.Validate(ctx, created.Token); su != nil {
		t.Fatal("expected session to be invalid at expiry")
	}

	advance(time.Hour)
	if su, _ := ss.Validate(ctx, created.Token); su != nil {
		t.Fatal("expected session to be invalid after expiry")
	}
}

func TestSessionDelete(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := mustCreateUser(t, us, "alice")
	ctx := context.Background()

	created, _ := ss.Create(ctx, u.ID, time.Hour)

	if err := ss.Delete(ctx, created.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if su, _ := ss.Validate(ctx, created.Token); su != nil {
		t.Error("expected nil after delete")
	}

	// Idempotent
	if err := ss.Delete(ctx, created.Token); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestSessionDeleteByUserID(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	alice := mustCreateUser(t, us, "alice")
	bob := mustCreateUser(t, us, "bob")
	ctx := context.Background()

	ss.Create(ctx, alice.ID, time.Hour)
	ss.Create(ctx, alice.ID, time.Hour)
	bobSess, _ := ss.Create(ctx, bob.ID, time.Hour)

	n, err := ss.DeleteByUserID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("delete by user id: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if su, _ := ss.Validate(ctx, bobSess.Token); su == nil {
		t.Error("expected bob's session to survive")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	ss, us := setupSessionTestDB(t)
	u := mustCreateUser(t, us, "alice")
	ctx := context.Background()

	clock, advance := fixedClock(time.Date(2026, 12, 1, 8, 0, 0, 0, time.UTC))
	ss.now = clock

	ss.Create(ctx, u.ID, time.Hour)
	long, _ := ss.Create(ctx, u.ID, 48*time.Hour)

	advance(2 * time.Hour)
	n, err := ss.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if su, _ := ss.Validate(ctx, long.Token); su == nil {
		t.Error("expected unexpired session to survive the sweep")
	}
}
