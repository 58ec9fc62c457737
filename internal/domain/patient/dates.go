package patient

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical text form of a birth date.
const DateLayout = "2006-01-02"

// birthDateLayouts are tried in order; the first successful parse wins,
// so "03/04/2020" reads as March 4th, not April 3rd.
var birthDateLayouts = []string{
	DateLayout,   // YYYY-MM-DD
	"01/02/2006", // MM/DD/YYYY
	"02/01/2006", // DD/MM/YYYY
}

// ParseBirthDate parses a birth date from user or CSV input.
// An empty string yields nil without error.
func ParseBirthDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range birthDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, &ValidationError{
		Field:  "birth_date",
		Reason: fmt.Sprintf("invalid date %q: use YYYY-MM-DD, MM/DD/YYYY, or DD/MM/YYYY", s),
	}
}
