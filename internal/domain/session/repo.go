package session

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uint) (*Session, error)
	// Delete removes a session; deleting an absent identifier is a no-op.
	Delete(ctx context.Context, id uint) error
	// ListByPatient returns a patient's sessions ordered by date.
	ListByPatient(ctx context.Context, patientID uint) ([]*Session, error)
	// StatsByPatient aggregates a patient's session history.
	StatsByPatient(ctx context.Context, patientID uint) (*Stats, error)
}
