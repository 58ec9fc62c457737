package patient

import (
	"time"
)

// Patient maps to the patients table. ID is the store-assigned identifier;
// CIN is the user-facing business key, unique case-insensitively and
// normalized to uppercase on entry.
type Patient struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CIN       string     `gorm:"size:64;uniqueIndex;not null" json:"cin"`
	FirstName string     `gorm:"size:120;not null" json:"first_name"`
	LastName  string     `gorm:"size:120;not null" json:"last_name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Phone     *string    `gorm:"size:60" json:"phone,omitempty"`
	Email     *string    `gorm:"size:160" json:"email,omitempty"`
	Notes     *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Patient) TableName() string { return "patients" }

// BirthDateString returns the birth date as YYYY-MM-DD, or "" when unset.
func (p *Patient) BirthDateString() string {
	if p.BirthDate == nil {
		return ""
	}
	return p.BirthDate.Format(DateLayout)
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PhoneString returns the phone number or "".
func (p *Patient) PhoneString() string { return strVal(p.Phone) }

// EmailString returns the email address or "".
func (p *Patient) EmailString() string { return strVal(p.Email) }

// NotesString returns the full notes text or "".
func (p *Patient) NotesString() string { return strVal(p.Notes) }
