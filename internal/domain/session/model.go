package session

import (
	"time"
)

// Session maps to the sessions table. Each session belongs to exactly one
// patient and follows it on delete.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PatientID uint      `gorm:"index;not null" json:"patient_id"`
	Date      time.Time `gorm:"not null" json:"date"`
	Price     float64   `json:"price"`
	Attended  bool      `json:"attended"`
	Notes     *string   `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

// Stats summarizes a patient's session history, as shown on the overview
// cards.
type Stats struct {
	PatientID      uint       `json:"patient_id"`
	TotalSessions  int        `json:"total_sessions"`
	FirstSession   *time.Time `json:"first_session,omitempty"`
	LastSession    *time.Time `json:"last_session,omitempty"`
	AttendanceRate float64    `json:"attendance_rate"`
	TotalRevenue   float64    `json:"total_revenue"`
}
