package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/adventskalender/internal/model"
)

func setupUserTestDB(t *testing.T) (*UserStore, *CalendarStore) {
	t.Helper()
	db := openTestDB(t)
	return NewUserStore(db), NewCalendarStore(db)
}

func TestUserCreate(t *testing.T) {
	us, _ := setupUserTestDB(t)
	ctx := context.Background()

	u, err := us.Create(ctx, "alice", "digest", model.RoleUser)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if u.Username != "alice" {
		t.Errorf("username = %q, want %q", u.Username, "alice")
	}
	if u.PasswordHash != "digest" {
		t.Errorf("password hash = %q, want %q", u.PasswordHash, "digest")
	}
	if u.Role != model.RoleUser {
		t.Errorf("role = %q, want %q", u.Role, model.RoleUser)
	}
	if u.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	us, _ := setupUserTestDB(t)
	ctx := context.Background()

	if _, err := us.Create(ctx, "alice", "digest", model.RoleUser); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := us.Create(ctx, "alice", "other", model.RoleAdmin)
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("err = %v, want ErrDuplicateUsername", err)
	}
}

func TestUserUsernameIsCaseSensitive(t *testing.T) {
	us, _ := setupUserTestDB(t)
	ctx := context.Background()

	mustCreateUser(t, us, "alice")
	if _, err := us.Create(ctx, "Alice", "digest", model.RoleUser); err != nil {
		t.Fatalf("create differently cased user: %v", err)
	}

	u, err := us.GetByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if u != nil {
		t.Error("expected nil for differently cased lookup")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	us, _ := setupUserTestDB(t)

	u, err := us.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if u != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserGetByUsername(t *testing.T) {
	us, _ := setupUserTestDB(t)
	created := mustCreateUser(t, us, "alice")

	u, err := us.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if u == nil {
		t.Fatal("expected user, got nil")
	}
	if u.ID != created.ID {
		t.Errorf("id = %d, want %d", u.ID, created.ID)
	}
}

func TestUserListIncludesCalendarCount(t *testing.T) {
	us, cs := setupUserTestDB(t)
	ctx := context.Background()

	alice := mustCreateUser(t, us, "alice")
	mustCreateUser(t, us, "bob")
	cs.Create(ctx, alice.ID, "Xmas", "")
	cs.Create(ctx, alice.ID, "Xmas 2", "")

	users, err := us.List(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("len = %d, want 2", len(users))
	}
	if users[0].Username != "alice" || users[0].CalendarCount == nil || *users[0].CalendarCount != 2 {
		t.Errorf("alice = %+v, want calendar_count 2", users[0])
	}
	if users[1].CalendarCount == nil || *users[1].CalendarCount != 0 {
		t.Errorf("bob calendar_count = %v, want 0", users[1].CalendarCount)
	}
}

func TestUserUpdateRole(t *testing.T) {
	us, _ := setupUserTestDB(t)
	ctx := context.Background()
	created := mustCreateUser(t, us, "alice")

	u, err := us.UpdateRole(ctx, created.ID, model.RoleAdmin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", u.Role, model.RoleAdmin)
	}

	missing, err := us.UpdateRole(ctx, 999, model.RoleAdmin)
	if err != nil {
		t.Fatalf("update missing role: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserDemoteRevokesSessions(t *testing.T) {
	db := openTestDB(t)
	us, ss := NewUserStore(db), NewSessionStore(db)
	ctx := context.Background()

	admin, err := us.Create(ctx, "root", "hash", model.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	bob := mustCreateUser(t, us, "bob")
	s1, _ := ss.Create(ctx, admin.ID, time.Hour)
	ss.Create(ctx, admin.ID, time.Hour)
	bobSess, _ := ss.Create(ctx, bob.ID, time.Hour)

	u, revoked, err := us.Demote(ctx, admin.ID)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if u.Role != model.RoleUser {
		t.Errorf("role = %q, want %q", u.Role, model.RoleUser)
	}
	if revoked != 2 {
		t.Errorf("revoked = %d, want 2", revoked)
	}
	if su, _ := ss.Validate(ctx, s1.Token); su != nil {
		t.Error("expected demoted user's session to be revoked")
	}
	if su, _ := ss.Validate(ctx, bobSess.Token); su == nil {
		t.Error("expected bob's session to survive")
	}

	missing, revoked, err := us.Demote(ctx, 999)
	if err != nil {
		t.Fatalf("demote missing: %v", err)
	}
	if missing != nil || revoked != 0 {
		t.Errorf("demote missing = %v, %d; want nil, 0", missing, revoked)
	}
}

func TestUserDemoteRollsBackOnRevokeFailure(t *testing.T) {
	db := openTestDB(t)
	us, ss := NewUserStore(db), NewSessionStore(db)
	ctx := context.Background()

	admin, err := us.Create(ctx, "root", "hash", model.RoleAdmin)
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	sess, _ := ss.Create(ctx, admin.ID, time.Hour)

	if _, err := db.ExecContext(ctx, `CREATE TRIGGER block_revoke BEFORE DELETE ON sessions
		BEGIN SELECT RAISE(ABORT, 'revoke blocked'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, _, err := us.Demote(ctx, admin.ID); err == nil {
		t.Fatal("expected demote to fail")
	}

	got, err := us.GetByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("role = %q after failed demote, want %q", got.Role, model.RoleAdmin)
	}
	if su, _ := ss.Validate(ctx, sess.Token); su == nil {
		t.Error("expected session to survive a failed demote")
	}
}

func TestUserDeleteCascades(t *testing.T) {
	db := openTestDB(t)
	us, cs, ss := NewUserStore(db), NewCalendarStore(db), NewSessionStore(db)
	ctx := context.Background()

	u := mustCreateUser(t, us, "alice")
	cal, _ := cs.Create(ctx, u.ID, "Xmas", "")
	ss.Create(ctx, u.ID, time.Hour)

	ok, err := us.Delete(ctx, u.ID)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if !ok {
		t.Fatal("expected delete to report a row")
	}

	var count int
	db.QueryRow(`SELECT COUNT(*) FROM calendars WHERE id = ?`, cal.ID).Scan(&count)
	if count != 0 {
		t.Errorf("calendars = %d, want 0", count)
	}
	db.QueryRow(`SELECT COUNT(*) FROM pouches WHERE calendar_id = ?`, cal.ID).Scan(&count)
	if count != 0 {
		t.Errorf("pouches = %d, want 0", count)
	}
	db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE user_id = ?`, u.ID).Scan(&count)
	if count != 0 {
		t.Errorf("sessions = %d, want 0", count)
	}

	again, err := us.Delete(ctx, u.ID)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if again {
		t.Error("expected second delete to report no row")
	}
}
