package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dukerupert/adventskalender/internal/database"
	"github.com/dukerupert/adventskalender/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustCreateUser(t *testing.T, us *UserStore, username string) *model.User {
	t.Helper()
	u, err := us.Create(context.Background(), username, "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("create user %q: %v", username, err)
	}
	return u
}
