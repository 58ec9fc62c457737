// Package csvio reads and writes the patient interchange format: a plain
// CSV with a fixed header, where blank lines and lines starting with '#'
// are ignored on import.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// Headers is the canonical column order of the interchange format.
var Headers = []string{"cin", "first_name", "last_name", "birth_date", "phone", "email", "notes"}

const sampleLine = "# SAMPLE: AA123456,John,Doe,1990-05-17,+212600000000,john@doe.com,Notes here"

// RowError describes one rejected import line. Line is the 1-based position
// in the uploaded file, comments and blanks included.
type RowError struct {
	Line    int      `json:"line"`
	Message string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}

// Result summarizes an import run.
type Result struct {
	Created int        `json:"created"`
	Errors  []RowError `json:"errors,omitempty"`
}

// Export writes the rows in interchange format. Import parses line by line
// to keep error line numbers exact, so embedded newlines in field values are
// flattened to spaces here to keep exported files re-importable.
func Export(w io.Writer, rows []*patient.Patient) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, p := range rows {
		rec := []string{
			p.CIN,
			p.FirstName,
			p.LastName,
			p.BirthDateString(),
			p.PhoneString(),
			p.EmailString(),
			flattenNewlines(p.NotesString()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func flattenNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

// WriteTemplate writes an empty import file: the header plus a commented
// sample row showing the expected formats.
func WriteTemplate(w io.Writer) error {
	if _, err := fmt.Fprintln(w, strings.Join(Headers, ",")); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, sampleLine)
	return err
}

// WriteErrorReport writes the rejected lines of an import run so the user
// can fix and re-import just the failures.
func WriteErrorReport(w io.Writer, errs []RowError) error {
	cw := csv.NewWriter(w)
	header := append([]string{"line", "error"}, Headers...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, re := range errs {
		rec := make([]string, 0, len(header))
		rec = append(rec, strconv.Itoa(re.Line), re.Message)
		for i := 0; i < len(Headers); i++ {
			if i < len(re.Fields) {
				rec = append(rec, re.Fields[i])
			} else {
				rec = append(rec, "")
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import parses the interchange format and calls create for every valid
// row. Rows that fail to parse, fail validation, or are rejected by create
// are collected as RowErrors with their original line numbers; one bad row
// never aborts the rest of the file.
func Import(r io.Reader, create func(*patient.Patient) error) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := strings.TrimPrefix(string(data), "\ufeff")

	type line struct {
		num  int
		text string
	}
	var lines []line
	for i, raw := range strings.Split(text, "\n") {
		s := strings.TrimRight(raw, "\r")
		if strings.TrimSpace(s) == "" || strings.HasPrefix(strings.TrimSpace(s), "#") {
			continue
		}
		lines = append(lines, line{num: i + 1, text: s})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty file: expected header %q", strings.Join(Headers, ","))
	}

	header, err := parseLine(lines[0].text)
	if err != nil {
		return nil, fmt.Errorf("line %d: malformed header: %w", lines[0].num, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	res := &Result{}
	for _, ln := range lines[1:] {
		fields, err := parseLine(ln.text)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: ln.num, Message: err.Error()})
			continue
		}
		p, err := rowToPatient(header, fields)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Line: ln.num, Message: err.Error(), Fields: fields})
			continue
		}
		if err := create(p); err != nil {
			res.Errors = append(res.Errors, RowError{Line: ln.num, Message: err.Error(), Fields: fields})
			continue
		}
		res.Created++
	}
	return res, nil
}

// parseLine runs one physical line through the csv reader so quoting rules
// match Export output. Keeping lines separate preserves file line numbers
// in error reports.
func parseLine(s string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(s))
	cr.FieldsPerRecord = -1
	return cr.Read()
}

// checkHeader requires every canonical column to be present, in any order,
// case-insensitively. Extra columns are ignored.
func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for _, h := range header {
		seen[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	var missing []string
	for _, want := range Headers {
		if _, ok := seen[want]; !ok {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing header column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func rowToPatient(header, fields []string) (*patient.Patient, error) {
	byName := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(fields) {
			byName[strings.ToLower(strings.TrimSpace(h))] = strings.TrimSpace(fields[i])
		}
	}

	p := &patient.Patient{
		CIN:       byName["cin"],
		FirstName: byName["first_name"],
		LastName:  byName["last_name"],
	}
	if p.CIN == "" {
		return nil, fmt.Errorf("cin is required")
	}
	if p.FirstName == "" {
		return nil, fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return nil, fmt.Errorf("last_name is required")
	}

	bd, err := patient.ParseBirthDate(byName["birth_date"])
	if err != nil {
		return nil, err
	}
	p.BirthDate = bd

	for name, dst := range map[string]**string{
		"phone": &p.Phone,
		"email": &p.Email,
		"notes": &p.Notes,
	} {
		if v := byName[name]; v != "" {
			v := v
			*dst = &v
		}
	}
	return p, nil
}
