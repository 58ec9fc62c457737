package registry

import (
	"fmt"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// Pager wraps a Filter and exposes a fixed-size window of the filtered
// sequence. Pages are 1-based; an empty filtered sequence still has exactly
// one (empty) page.
type Pager struct {
	src      *Filter
	page     int
	pageSize int
}

func NewPager(src *Filter, pageSize int) *Pager {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Pager{src: src, page: 1, pageSize: pageSize}
}

func (p *Pager) Page() int     { return p.page }
func (p *Pager) PageSize() int { return p.pageSize }

func (p *Pager) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	if tp := p.TotalPages(); page > tp {
		page = tp
	}
	p.page = page
}

func (p *Pager) SetPageSize(size int) {
	if size < 1 {
		size = 1
	}
	p.pageSize = size
	p.Clamp()
}

// Clamp pulls the current page back into range. Call it after any change to
// the filtered sequence.
func (p *Pager) Clamp() {
	if tp := p.TotalPages(); p.page > tp {
		p.page = tp
	}
	if p.page < 1 {
		p.page = 1
	}
}

func (p *Pager) TotalRows() int {
	return p.src.RowCount()
}

func (p *Pager) TotalPages() int {
	n := p.TotalRows()
	if n <= 0 {
		return 1
	}
	return (n + p.pageSize - 1) / p.pageSize
}

// RowCount returns the number of rows in the current window.
func (p *Pager) RowCount() int {
	start := (p.page - 1) * p.pageSize
	remaining := p.TotalRows() - start
	if remaining < 0 {
		remaining = 0
	}
	if remaining > p.pageSize {
		return p.pageSize
	}
	return remaining
}

// Window returns the half-open filtered-sequence interval of the current
// page.
func (p *Pager) Window() (start, end int) {
	start = (p.page - 1) * p.pageSize
	if start > p.TotalRows() {
		start = p.TotalRows()
	}
	end = start + p.RowCount()
	return start, end
}

// FilteredIndex maps a window position to its filtered-sequence position.
func (p *Pager) FilteredIndex(row int) (int, bool) {
	if row < 0 || row >= p.RowCount() {
		return 0, false
	}
	return (p.page-1)*p.pageSize + row, true
}

// SourceIndex maps a window position all the way back to the source
// sequence: windowIndex -> filteredIndex -> sourceIndex.
func (p *Pager) SourceIndex(row int) (int, bool) {
	fi, ok := p.FilteredIndex(row)
	if !ok {
		return 0, false
	}
	return p.src.SourceIndex(fi), true
}

// WindowIndexOf maps a filtered-sequence position into the current window,
// returning false when the row is on another page.
func (p *Pager) WindowIndexOf(filteredIdx int) (int, bool) {
	row := filteredIdx - (p.page-1)*p.pageSize
	if row < 0 || row >= p.RowCount() {
		return 0, false
	}
	return row, true
}

func (p *Pager) At(row int) *patient.Patient {
	fi, _ := p.FilteredIndex(row)
	return p.src.At(fi)
}

func (p *Pager) Value(row, col int) string {
	fi, _ := p.FilteredIndex(row)
	return p.src.Value(fi, col)
}

// PageLabel renders "Page x / y" for the pagination controls.
func (p *Pager) PageLabel() string {
	return fmt.Sprintf("Page %d / %d", p.page, p.TotalPages())
}

// RangeLabel renders "Showing a–b of n" over the filtered sequence.
func (p *Pager) RangeLabel() string {
	n := p.TotalRows()
	if n == 0 {
		return "Showing 0 of 0"
	}
	start, end := p.Window()
	return fmt.Sprintf("Showing %d–%d of %d", start+1, end, n)
}
