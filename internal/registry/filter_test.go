package registry

import (
	"reflect"
	"testing"
	"time"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

func strPtr(s string) *string { return &s }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func samplePatients() []*patient.Patient {
	return []*patient.Patient{
		{ID: 1, CIN: "AB123456", FirstName: "Amina", LastName: "Benali", BirthDate: date(1990, 5, 17), Phone: strPtr("+212600000001"), Email: strPtr("amina@example.com")},
		{ID: 2, CIN: "AB998877", FirstName: "Karim", LastName: "Alaoui", Phone: strPtr("+212600000002")},
		{ID: 3, CIN: "CD445566", FirstName: "Sara", LastName: "Mansouri", BirthDate: date(1985, 11, 2), Email: strPtr("sara@example.com")},
		{ID: 4, CIN: "ab123", FirstName: "Yassine", LastName: "Berrada", BirthDate: date(2001, 1, 30)},
	}
}

func newTestFilter() *Filter {
	return NewFilter(NewTable(samplePatients()))
}

func visibleCINs(f *Filter) []string {
	var out []string
	for i := 0; i < f.RowCount(); i++ {
		out = append(out, f.At(i).CIN)
	}
	return out
}

func TestFilter_NoPredicatesPassesAll(t *testing.T) {
	f := newTestFilter()
	if f.RowCount() != 4 {
		t.Fatalf("expected all 4 rows, got %d", f.RowCount())
	}
}

func TestFilter_CINModes(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"contains", "123", []string{"AB123456", "ab123"}},
		{"contains is case-insensitive", "aB12", []string{"AB123456", "ab123"}},
		{"prefix", "AB*", []string{"AB123456", "AB998877", "ab123"}},
		{"exact", "=ab123456", []string{"AB123456"}},
		{"exact no partial", "=AB123", []string{"ab123"}},
		{"empty matches all", "", []string{"AB123456", "AB998877", "CD445566", "ab123"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFilter()
			f.SetText(TextFilters{CIN: tc.pattern})
			if got := visibleCINs(f); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("pattern %q: got %v, want %v", tc.pattern, got, tc.want)
			}
		})
	}
}

func TestFilter_TextFieldsCombineWithAND(t *testing.T) {
	f := newTestFilter()
	f.SetText(TextFilters{CIN: "AB*", Last: "ben"})
	if got := visibleCINs(f); !reflect.DeepEqual(got, []string{"AB123456"}) {
		t.Errorf("expected AND of predicates, got %v", got)
	}
}

func TestFilter_TextIsTrimmedAndCaseFolded(t *testing.T) {
	f := newTestFilter()
	f.SetText(TextFilters{First: "  KARIM "})
	if got := visibleCINs(f); !reflect.DeepEqual(got, []string{"AB998877"}) {
		t.Errorf("expected trimmed case-insensitive match, got %v", got)
	}
}

func TestFilter_DateRangeNeverExcludesUnknownDates(t *testing.T) {
	f := newTestFilter()
	f.SetDateRange(date(1989, 1, 1), date(1995, 12, 31))

	// Amina (1990) is in range; Karim has no date and must survive.
	want := []string{"AB123456", "AB998877"}
	if got := visibleCINs(f); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter_DateRangeBoundsInclusive(t *testing.T) {
	f := newTestFilter()
	f.SetDateRange(date(1990, 5, 17), date(1990, 5, 17))
	got := visibleCINs(f)
	want := []string{"AB123456", "AB998877"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter_DateRangeOpenEnds(t *testing.T) {
	f := newTestFilter()
	f.SetDateRange(date(2000, 1, 1), nil)
	want := []string{"AB998877", "ab123"}
	if got := visibleCINs(f); !reflect.DeepEqual(got, want) {
		t.Errorf("from-only range: got %v, want %v", got, want)
	}

	f.SetDateRange(nil, date(1986, 1, 1))
	want = []string{"AB998877", "CD445566"}
	if got := visibleCINs(f); !reflect.DeepEqual(got, want) {
		t.Errorf("to-only range: got %v, want %v", got, want)
	}
}

func TestFilter_InclusionRestrictsColumn(t *testing.T) {
	f := newTestFilter()
	f.SetInclusion(ColLast, []string{"Benali", "Alaoui"})
	want := []string{"AB123456", "AB998877"}
	if got := visibleCINs(f); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter_InclusionIsCaseInsensitiveOnTextColumns(t *testing.T) {
	f := newTestFilter()
	f.SetInclusion(ColLast, []string{"BENALI"})
	if got := visibleCINs(f); !reflect.DeepEqual(got, []string{"AB123456"}) {
		t.Errorf("got %v", got)
	}
}

func TestFilter_FullVisibleSetClearsInclusion(t *testing.T) {
	f := newTestFilter()
	all := f.DistinctValues(ColLast)
	f.SetInclusion(ColLast, all)
	if f.RowCount() != 4 {
		t.Fatalf("checking every value must clear the restriction, got %d rows", f.RowCount())
	}

	// A genuinely restricting set later must still apply.
	f.SetInclusion(ColLast, []string{"Mansouri"})
	if got := visibleCINs(f); !reflect.DeepEqual(got, []string{"CD445566"}) {
		t.Errorf("got %v", got)
	}
}

func TestFilter_EmptyInclusionClears(t *testing.T) {
	f := newTestFilter()
	f.SetInclusion(ColLast, []string{"Benali"})
	f.SetInclusion(ColLast, nil)
	if f.RowCount() != 4 {
		t.Errorf("empty set must clear the restriction, got %d rows", f.RowCount())
	}
}

func TestFilter_DistinctValuesSortedOverVisibleRows(t *testing.T) {
	f := newTestFilter()
	f.SetText(TextFilters{CIN: "AB*"})
	got := f.DistinctValues(ColLast)
	want := []string{"Alaoui", "Benali", "Berrada"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFilter_ClearResetsEverything(t *testing.T) {
	f := newTestFilter()
	f.SetText(TextFilters{CIN: "=none"})
	f.SetDateRange(date(2020, 1, 1), nil)
	f.SetInclusion(ColLast, []string{"Benali"})
	f.Clear()
	if f.RowCount() != 4 {
		t.Errorf("expected all rows after Clear, got %d", f.RowCount())
	}
}

func TestFilter_IndexMappingRoundTrip(t *testing.T) {
	f := newTestFilter()
	f.SetText(TextFilters{CIN: "AB*"}) // source rows 0, 1, 3

	wantSources := []int{0, 1, 3}
	for i, src := range wantSources {
		if got := f.SourceIndex(i); got != src {
			t.Errorf("SourceIndex(%d) = %d, want %d", i, got, src)
		}
		back, ok := f.FilteredIndexOf(src)
		if !ok || back != i {
			t.Errorf("FilteredIndexOf(%d) = %d,%v, want %d,true", src, back, ok, i)
		}
	}
	if _, ok := f.FilteredIndexOf(2); ok {
		t.Error("filtered-out row must not map into the filtered sequence")
	}
}

func TestFilter_NotesTruncatedInDisplayOnly(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'x'
	}
	rows := []*patient.Patient{
		{ID: 1, CIN: "AA1", FirstName: "A", LastName: "B", Notes: strPtr(string(long))},
	}
	f := NewFilter(NewTable(rows))
	if got := len([]rune(f.Value(0, ColNotes))); got != notesPreviewLen {
		t.Errorf("expected %d-rune preview, got %d", notesPreviewLen, got)
	}
	if len([]rune(f.At(0).NotesString())) != 200 {
		t.Error("record must keep the full notes text")
	}
}
