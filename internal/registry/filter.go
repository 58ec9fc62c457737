package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// TextFilters carries the per-field substring predicates. The CIN predicate
// supports three modes selected by prefix syntax: a leading '=' requires
// exact (case-insensitive) equality, a trailing '*' requires a prefix match,
// anything else is substring containment.
type TextFilters struct {
	CIN   string `json:"cin"`
	First string `json:"first"`
	Last  string `json:"last"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Filter wraps a Table and exposes the subsequence of rows satisfying every
// active predicate. Predicates combine with AND; an empty predicate imposes
// no constraint.
type Filter struct {
	src *Table

	text      TextFilters
	birthFrom *time.Time
	birthTo   *time.Time
	include   map[int]map[string]struct{}

	accepted []int // source row indexes, in source order
}

func NewFilter(src *Table) *Filter {
	f := &Filter{
		src:     src,
		include: make(map[int]map[string]struct{}),
	}
	f.Invalidate()
	return f
}

// SetText replaces the per-field text predicates.
func (f *Filter) SetText(t TextFilters) {
	f.text = TextFilters{
		CIN:   strings.TrimSpace(t.CIN),
		First: strings.ToLower(strings.TrimSpace(t.First)),
		Last:  strings.ToLower(strings.TrimSpace(t.Last)),
		Phone: strings.ToLower(strings.TrimSpace(t.Phone)),
		Email: strings.ToLower(strings.TrimSpace(t.Email)),
	}
	f.Invalidate()
}

// SetDateRange replaces the inclusive birth-date range. Rows without a birth
// date are never excluded by the range.
func (f *Filter) SetDateRange(from, to *time.Time) {
	f.birthFrom = from
	f.birthTo = to
	f.Invalidate()
}

// SetInclusion restricts col to the given display values. An empty set, or a
// set covering every currently visible distinct value, clears the
// restriction: a checklist with everything ticked must not silently exclude
// values that appear later.
func (f *Filter) SetInclusion(col int, values []string) {
	if len(values) == 0 {
		delete(f.include, col)
		f.Invalidate()
		return
	}

	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[normalizeCell(col, v)] = struct{}{}
	}

	visible := make(map[string]struct{})
	for _, v := range f.DistinctValues(col) {
		visible[normalizeCell(col, v)] = struct{}{}
	}
	if setsEqual(set, visible) {
		delete(f.include, col)
		f.Invalidate()
		return
	}

	f.include[col] = set
	f.Invalidate()
}

// ClearInclusions drops every per-column restriction.
func (f *Filter) ClearInclusions() {
	f.include = make(map[int]map[string]struct{})
	f.Invalidate()
}

// Clear resets every predicate.
func (f *Filter) Clear() {
	f.text = TextFilters{}
	f.birthFrom, f.birthTo = nil, nil
	f.include = make(map[int]map[string]struct{})
	f.Invalidate()
}

// DistinctValues returns the sorted distinct display values of col among
// rows passing every predicate except col's own inclusion set, so a
// checklist can list the unchecked values too.
func (f *Filter) DistinctValues(col int) []string {
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < f.src.RowCount(); i++ {
		if !f.accepts(i, col) {
			continue
		}
		v := f.src.Value(i, col)
		key := normalizeCell(col, v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Invalidate recomputes the accepted row list from the source sequence.
// Call it whenever the source, a predicate, or an inclusion set changes.
func (f *Filter) Invalidate() {
	f.accepted = f.accepted[:0]
	for i := 0; i < f.src.RowCount(); i++ {
		if f.accepts(i, -1) {
			f.accepted = append(f.accepted, i)
		}
	}
}

func (f *Filter) RowCount() int {
	return len(f.accepted)
}

// SourceIndex maps a filtered position to its source position.
func (f *Filter) SourceIndex(i int) int {
	return f.accepted[i]
}

// FilteredIndexOf maps a source position back into the filtered sequence,
// returning false when the row is filtered out.
func (f *Filter) FilteredIndexOf(srcIdx int) (int, bool) {
	for i, s := range f.accepted {
		if s == srcIdx {
			return i, true
		}
	}
	return 0, false
}

func (f *Filter) At(i int) *patient.Patient {
	return f.src.At(f.accepted[i])
}

func (f *Filter) Value(row, col int) string {
	return f.src.Value(f.accepted[row], col)
}

// accepts applies every predicate to a source row. skipCol names an
// inclusion set to ignore, -1 for none.
func (f *Filter) accepts(row, skipCol int) bool {
	for col, allowed := range f.include {
		if col == skipCol {
			continue
		}
		cell := normalizeCell(col, f.src.Value(row, col))
		if _, ok := allowed[cell]; !ok {
			return false
		}
	}

	if !matchCIN(f.text.CIN, f.src.Value(row, ColCIN)) {
		return false
	}
	if !contains(f.src.Value(row, ColFirst), f.text.First) {
		return false
	}
	if !contains(f.src.Value(row, ColLast), f.text.Last) {
		return false
	}
	if !contains(f.src.Value(row, ColPhone), f.text.Phone) {
		return false
	}
	if !contains(f.src.Value(row, ColEmail), f.text.Email) {
		return false
	}

	if f.birthFrom != nil || f.birthTo != nil {
		// Rows with no birth date always pass the range.
		if birth := f.src.Value(row, ColBirth); birth != "" {
			bd, err := time.Parse(patient.DateLayout, birth)
			if err == nil {
				if f.birthFrom != nil && bd.Before(*f.birthFrom) {
					return false
				}
				if f.birthTo != nil && bd.After(*f.birthTo) {
					return false
				}
			}
		}
	}

	return true
}

// matchCIN applies the three-mode CIN predicate. An empty pattern matches
// everything.
func matchCIN(pattern, cell string) bool {
	if pattern == "" {
		return true
	}
	p := strings.ToLower(pattern)
	c := strings.ToLower(cell)
	switch {
	case strings.HasPrefix(p, "="):
		return c == p[1:]
	case strings.HasSuffix(p, "*"):
		return strings.HasPrefix(c, p[:len(p)-1])
	default:
		return strings.Contains(c, p)
	}
}

func contains(cell, pattern string) bool {
	if pattern == "" {
		return true
	}
	return strings.Contains(strings.ToLower(cell), pattern)
}

// normalizeCell folds text columns to lowercase for comparison; the date
// column compares verbatim.
func normalizeCell(col int, v string) string {
	if col == ColBirth {
		return v
	}
	return strings.ToLower(v)
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
