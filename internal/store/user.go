package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/adventskalender/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, username, password_hash, role, created_at`

// Create inserts a user. Returns ErrDuplicateUsername if the username is taken.
func (s *UserStore) Create(ctx context.Context, username, passwordHash, role string) (*model.User, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByUsername looks a user up by exact, case-sensitive username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// List returns all users ordered by id, each with its calendar count.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.username, u.password_hash, u.role, u.created_at,
		   (SELECT COUNT(*) FROM calendars c WHERE c.user_id = u.id)
		 FROM users u
		 ORDER BY u.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var count int
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &count); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.CalendarCount = &count
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateRole sets the role and returns the updated user, or nil if absent.
func (s *UserStore) UpdateRole(ctx context.Context, id int64, role string) (*model.User, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// Demote sets the role to user and revokes every session of the user in one
// transaction. Returns a nil user if absent, along with the number of
// sessions revoked.
func (s *UserStore) Demote(ctx context.Context, id int64) (*model.User, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, model.RoleUser, id)
	if err != nil {
		return nil, 0, fmt.Errorf("demote user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, 0, nil
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, id)
	if err != nil {
		return nil, 0, fmt.Errorf("revoke sessions: %w", err)
	}
	revoked, err := result.RowsAffected()
	if err != nil {
		return nil, 0, fmt.Errorf("rows affected: %w", err)
	}

	u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, 0, fmt.Errorf("get user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return u, revoked, nil
}

// Delete removes the user; calendars, pouches and sessions cascade.
// Reports whether a row was deleted.
func (s *UserStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
