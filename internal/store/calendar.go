package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/adventskalender/internal/model"
)

type CalendarStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewCalendarStore(db *sql.DB) *CalendarStore {
	return &CalendarStore{db: db, now: time.Now}
}

func scanCalendar(scanner interface{ Scan(...any) error }) (*model.Calendar, error) {
	var c model.Calendar
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt,
		&c.PackedCount, &c.TotalPouches,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const calendarCols = `c.id, c.user_id, c.name, c.description, c.created_at,
	(SELECT COUNT(*) FROM pouches p WHERE p.calendar_id = c.id AND p.is_packed = 1),
	(SELECT COUNT(*) FROM pouches p WHERE p.calendar_id = c.id)`

// Create inserts a calendar together with its 24 empty pouches in one
// transaction. The transaction ignores cancellation of ctx once started so a
// calendar is never left with a partial pouch set.
func (s *CalendarStore) Create(ctx context.Context, userID int64, name, description string) (*model.Calendar, error) {
	txCtx := context.WithoutCancel(ctx)
	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(txCtx,
		`INSERT INTO calendars (user_id, name, description) VALUES (?, ?, ?)`,
		userID, name, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.PrepareContext(txCtx,
		`INSERT INTO pouches (calendar_id, number, content, notes, is_packed) VALUES (?, ?, '', '', 0)`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare pouch insert: %w", err)
	}
	defer stmt.Close()

	for n := 1; n <= model.PouchesPerCalendar; n++ {
		if _, err := stmt.ExecContext(txCtx, id, n); err != nil {
			return nil, fmt.Errorf("insert pouch %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(txCtx, id)
}

func (s *CalendarStore) GetByID(ctx context.Context, id int64) (*model.Calendar, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+calendarCols+` FROM calendars c WHERE c.id = ?`, id)
	c, err := scanCalendar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's calendars, newest first.
func (s *CalendarStore) ListByUser(ctx context.Context, userID int64) ([]model.Calendar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+calendarCols+` FROM calendars c WHERE c.user_id = ? ORDER BY c.created_at DESC, c.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	var calendars []model.Calendar
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		calendars = append(calendars, *c)
	}
	return calendars, rows.Err()
}

// IsOwnedByUser reports whether the calendar exists and belongs to userID.
func (s *CalendarStore) IsOwnedByUser(ctx context.Context, calendarID, userID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM calendars WHERE id = ? AND user_id = ?`, calendarID, userID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check calendar owner: %w", err)
	}
	return true, nil
}

// Update overwrites name and description. Reports false if the calendar is absent.
func (s *CalendarStore) Update(ctx context.Context, id int64, name, description string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE calendars SET name = ?, description = ? WHERE id = ?`,
		name, description, id,
	)
	if err != nil {
		return false, fmt.Errorf("update calendar: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes the calendar; its pouches cascade.
func (s *CalendarStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete calendar: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// Export reads a consistent snapshot of the calendar and its pouches.
// Returns nil if the calendar is absent.
func (s *CalendarStore) Export(ctx context.Context, id int64) (*model.CalendarExport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+calendarCols+` FROM calendars c WHERE c.id = ?`, id)
	c, err := scanCalendar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get calendar: %w", err)
	}

	pouches, err := listPouches(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	return &model.CalendarExport{
		Calendar:   *c,
		Pouches:    pouches,
		ExportedAt: s.now().UTC(),
	}, nil
}
