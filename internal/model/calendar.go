package model

import "time"

// PouchesPerCalendar is the fixed number of pouches, one per advent day.
const PouchesPerCalendar = 24

type Calendar struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"user_id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	CreatedAt    time.Time         `json:"created_at"`
	PackedCount  int               `json:"packed_count"`
	TotalPouches int               `json:"total_pouches"`
	Progress     *CalendarProgress `json:"progress,omitempty"`
}

type CalendarProgress struct {
	Total      int `json:"total"`
	Packed     int `json:"packed"`
	Percentage int `json:"percentage"`
}

// NewProgress derives progress figures from the pouch counts.
func NewProgress(packed, total int) *CalendarProgress {
	p := &CalendarProgress{Total: total, Packed: packed}
	if total > 0 {
		p.Percentage = packed * 100 / total
	}
	return p
}

type Pouch struct {
	ID         int64     `json:"id"`
	CalendarID int64     `json:"calendar_id"`
	Number     int       `json:"number"`
	Content    string    `json:"content"`
	Notes      string    `json:"notes"`
	IsPacked   bool      `json:"is_packed"`
	CreatedAt  time.Time `json:"created_at"`
}

// CalendarExport is a snapshot of a calendar with its pouches ordered by number.
type CalendarExport struct {
	Calendar   Calendar  `json:"calendar"`
	Pouches    []Pouch   `json:"pouches"`
	ExportedAt time.Time `json:"exported_at"`
}
