package patient

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uint) (*Patient, error)
	GetByCIN(ctx context.Context, cin string) (*Patient, error)
	// Delete removes the patient and its session records. Deleting an
	// absent identifier is a no-op.
	Delete(ctx context.Context, id uint) error
	// Search returns all patients matching q as a case-insensitive
	// substring across cin, names, phone, email, notes, and the text form
	// of the birth date, ordered by last name then first name. An empty q
	// returns every patient.
	Search(ctx context.Context, q string) ([]*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}
