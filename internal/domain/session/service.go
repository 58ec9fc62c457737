package session

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

func validate(s *Session) error {
	if s.PatientID == 0 {
		return &ValidationError{Field: "patient_id", Reason: "required"}
	}
	if s.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if s.Price < 0 {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if s.Notes != nil {
		t := strings.TrimSpace(*s.Notes)
		if t == "" {
			s.Notes = nil
		} else {
			s.Notes = &t
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, sess *Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	return s.repo.Create(ctx, sess)
}

func (s *Service) Update(ctx context.Context, sess *Session) error {
	if err := validate(sess); err != nil {
		return err
	}
	if sess.ID == 0 {
		return &ValidationError{Field: "id", Reason: "required for update"}
	}
	return s.repo.Update(ctx, sess)
}

func (s *Service) Get(ctx context.Context, id uint) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uint) ([]*Session, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) StatsByPatient(ctx context.Context, patientID uint) (*Stats, error) {
	return s.repo.StatsByPatient(ctx, patientID)
}
