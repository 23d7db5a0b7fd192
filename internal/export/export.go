// Package export renders calendar snapshots as downloadable files.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/adventskalender/internal/model"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ValidFormat reports whether f is a supported export format.
func ValidFormat(f string) bool {
	return f == FormatJSON || f == FormatCSV
}

// ContentType returns the response content type for format f.
func ContentType(f string) string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename builds the download name: the calendar name with every
// character outside [A-Za-z0-9] replaced by "_", a unix-millis suffix and
// the format extension.
func Filename(name string, at time.Time, format string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return fmt.Sprintf("%s_%d.%s", b.String(), at.UnixMilli(), format)
}

// Write renders exp to w in the given format.
func Write(w io.Writer, exp *model.CalendarExport, format string) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, exp)
	case FormatCSV:
		return WriteCSV(w, exp)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func WriteJSON(w io.Writer, exp *model.CalendarExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

// WriteCSV writes the calendar metadata block, a blank line, then one row per
// pouch. Every field is quoted and embedded quotes are doubled.
func WriteCSV(w io.Writer, exp *model.CalendarExport) error {
	bw := bufio.NewWriter(w)
	c := exp.Calendar

	writeRow(bw, "ID", "Name", "Description", "Created At", "Packed", "Total")
	writeRow(bw,
		strconv.FormatInt(c.ID, 10),
		c.Name,
		c.Description,
		formatTime(c.CreatedAt),
		strconv.Itoa(c.PackedCount),
		strconv.Itoa(c.TotalPouches),
	)
	bw.WriteString("\n")

	writeRow(bw, "Number", "Content", "Notes", "Packed", "Created At")
	for _, p := range exp.Pouches {
		writeRow(bw,
			strconv.Itoa(p.Number),
			p.Content,
			p.Notes,
			yesNo(p.IsPacked),
			formatTime(p.CreatedAt),
		)
	}
	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
