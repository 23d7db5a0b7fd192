package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"

	"github.com/dukerupert/adventskalender/internal/model"
)

type PouchStore struct {
	db *sql.DB
	// shuffle permutes n elements via swap; rand.Shuffle is Fisher–Yates.
	shuffle func(n int, swap func(i, j int))
}

func NewPouchStore(db *sql.DB) *PouchStore {
	return &PouchStore{db: db, shuffle: rand.Shuffle}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanPouch(scanner interface{ Scan(...any) error }) (*model.Pouch, error) {
	var p model.Pouch
	var packed int
	err := scanner.Scan(&p.ID, &p.CalendarID, &p.Number, &p.Content, &p.Notes, &packed, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.IsPacked = packed != 0
	return &p, nil
}

const pouchCols = `id, calendar_id, number, content, notes, is_packed, created_at`

func listPouches(ctx context.Context, q querier, calendarID int64) ([]model.Pouch, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+pouchCols+` FROM pouches WHERE calendar_id = ? ORDER BY number ASC`,
		calendarID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pouches: %w", err)
	}
	defer rows.Close()

	var pouches []model.Pouch
	for rows.Next() {
		p, err := scanPouch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pouch: %w", err)
		}
		pouches = append(pouches, *p)
	}
	return pouches, rows.Err()
}

func getPouch(ctx context.Context, q querier, id int64) (*model.Pouch, error) {
	row := q.QueryRowContext(ctx, `SELECT `+pouchCols+` FROM pouches WHERE id = ?`, id)
	p, err := scanPouch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pouch: %w", err)
	}
	return p, nil
}

// ListByCalendar returns the calendar's pouches ordered by number.
func (s *PouchStore) ListByCalendar(ctx context.Context, calendarID int64) ([]model.Pouch, error) {
	return listPouches(ctx, s.db, calendarID)
}

func (s *PouchStore) GetByID(ctx context.Context, id int64) (*model.Pouch, error) {
	return getPouch(ctx, s.db, id)
}

// checkOwner resolves pouch → calendar → user inside tx.
func checkOwner(ctx context.Context, tx *sql.Tx, pouchID, userID int64) (packed bool, err error) {
	var ownerID int64
	var isPacked int
	err = tx.QueryRowContext(ctx,
		`SELECT c.user_id, p.is_packed
		 FROM pouches p
		 JOIN calendars c ON c.id = p.calendar_id
		 WHERE p.id = ?`,
		pouchID,
	).Scan(&ownerID, &isPacked)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check pouch owner: %w", err)
	}
	if ownerID != userID {
		return false, ErrForbidden
	}
	return isPacked != 0, nil
}

// UpdateForOwner overwrites content, notes and the packed flag. The
// ownership check and the write share one transaction. Returns ErrNotFound
// or ErrForbidden when the guard fails.
func (s *PouchStore) UpdateForOwner(ctx context.Context, pouchID, userID int64, content, notes string, packed bool) (*model.Pouch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := checkOwner(ctx, tx, pouchID, userID); err != nil {
		return nil, err
	}

	var p int
	if packed {
		p = 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE pouches SET content = ?, notes = ?, is_packed = ? WHERE id = ?`,
		content, notes, p, pouchID,
	); err != nil {
		return nil, fmt.Errorf("update pouch: %w", err)
	}

	pouch, err := getPouch(ctx, tx, pouchID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return pouch, nil
}

// ToggleForOwner flips the packed flag. Content and notes are untouched.
func (s *PouchStore) ToggleForOwner(ctx context.Context, pouchID, userID int64) (*model.Pouch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	packed, err := checkOwner(ctx, tx, pouchID, userID)
	if err != nil {
		return nil, err
	}

	next := 1
	if packed {
		next = 0
	}
	if _, err := tx.ExecContext(ctx, `UPDATE pouches SET is_packed = ? WHERE id = ?`, next, pouchID); err != nil {
		return nil, fmt.Errorf("toggle pouch: %w", err)
	}

	pouch, err := getPouch(ctx, tx, pouchID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return pouch, nil
}

type pouchPayload struct {
	content string
	notes   string
}

// Shuffle randomly permutes the (content, notes) pairs across the calendar's
// pouches. Ids, numbers and packed flags stay where they are. A calendar
// without exactly 24 pouches yields ErrPouchIntegrity and nothing is written.
func (s *PouchStore) Shuffle(ctx context.Context, calendarID int64) ([]model.Pouch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	pouches, err := listPouches(ctx, tx, calendarID)
	if err != nil {
		return nil, err
	}
	if len(pouches) != model.PouchesPerCalendar {
		return nil, fmt.Errorf("calendar %d has %d pouches: %w", calendarID, len(pouches), ErrPouchIntegrity)
	}

	payloads := make([]pouchPayload, len(pouches))
	for i, p := range pouches {
		payloads[i] = pouchPayload{content: p.Content, notes: p.Notes}
	}
	s.shuffle(len(payloads), func(i, j int) {
		payloads[i], payloads[j] = payloads[j], payloads[i]
	})

	stmt, err := tx.PrepareContext(ctx, `UPDATE pouches SET content = ?, notes = ? WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("prepare pouch update: %w", err)
	}
	defer stmt.Close()

	for i := range pouches {
		pouches[i].Content = payloads[i].content
		pouches[i].Notes = payloads[i].notes
		if _, err := stmt.ExecContext(ctx, pouches[i].Content, pouches[i].Notes, pouches[i].ID); err != nil {
			return nil, fmt.Errorf("update pouch %d: %w", pouches[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return pouches, nil
}
