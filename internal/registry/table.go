package registry

import (
	"strconv"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// Column indexes of the patient list view.
const (
	ColID = iota
	ColCIN
	ColFirst
	ColLast
	ColBirth
	ColPhone
	ColEmail
	ColNotes

	columnCount
)

// Headers are the display names, indexed by column.
var Headers = [columnCount]string{
	"ID", "CIN", "First name", "Last name", "Birth date", "Phone", "Email", "Notes",
}

// Notes are truncated in list views only; the record keeps the full text.
const notesPreviewLen = 120

// Table holds the ordered result of the last store query and is the source
// sequence of the filter and pagination layers.
type Table struct {
	rows []*patient.Patient
}

func NewTable(rows []*patient.Patient) *Table {
	return &Table{rows: rows}
}

func (t *Table) SetRows(rows []*patient.Patient) {
	t.rows = rows
}

func (t *Table) RowCount() int {
	return len(t.rows)
}

func (t *Table) At(i int) *patient.Patient {
	return t.rows[i]
}

// Value returns the display value of a cell.
func (t *Table) Value(row, col int) string {
	p := t.rows[row]
	switch col {
	case ColID:
		return strconv.FormatUint(uint64(p.ID), 10)
	case ColCIN:
		return p.CIN
	case ColFirst:
		return p.FirstName
	case ColLast:
		return p.LastName
	case ColBirth:
		return p.BirthDateString()
	case ColPhone:
		return p.PhoneString()
	case ColEmail:
		return p.EmailString()
	case ColNotes:
		return truncate(p.NotesString(), notesPreviewLen)
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
