package patient

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// normalize trims every field, uppercases the CIN, and folds empty optional
// fields to nil so they persist as NULL.
func normalize(p *Patient) {
	p.CIN = strings.ToUpper(strings.TrimSpace(p.CIN))
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.Phone = trimOptional(p.Phone)
	p.Email = trimOptional(p.Email)
	p.Notes = trimOptional(p.Notes)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func validate(p *Patient) error {
	if p.CIN == "" {
		return &ValidationError{Field: "cin", Reason: "required"}
	}
	if p.FirstName == "" {
		return &ValidationError{Field: "first_name", Reason: "required"}
	}
	if p.LastName == "" {
		return &ValidationError{Field: "last_name", Reason: "required"}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	if p.ID == 0 {
		return &ValidationError{Field: "id", Reason: "required for update"}
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uint) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCIN(ctx context.Context, cin string) (*Patient, error) {
	return s.repo.GetByCIN(ctx, cin)
}

// Delete removes the patient and its sessions. Absent identifiers are a
// silent no-op.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, q string) ([]*Patient, error) {
	return s.repo.Search(ctx, q)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}
