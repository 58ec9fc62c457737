package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

// -- Mock Repository --

type mockRepo struct {
	sessions map[uint]*Session
	nextID   uint
}

func newMockRepo() *mockRepo {
	return &mockRepo{sessions: make(map[uint]*Session), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, s *Session) error {
	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, s *Session) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uint) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) Delete(_ context.Context, id uint) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uint) ([]*Session, error) {
	var rows []*Session
	for _, s := range m.sessions {
		if s.PatientID == patientID {
			rows = append(rows, s)
		}
	}
	return rows, nil
}

func (m *mockRepo) StatsByPatient(ctx context.Context, patientID uint) (*Stats, error) {
	rows, _ := m.ListByPatient(ctx, patientID)
	stats := &Stats{PatientID: patientID, TotalSessions: len(rows)}
	attended := 0
	for _, s := range rows {
		stats.TotalRevenue += s.Price
		if s.Attended {
			attended++
		}
		d := s.Date
		if stats.FirstSession == nil || d.Before(*stats.FirstSession) {
			stats.FirstSession = &d
		}
		if stats.LastSession == nil || d.After(*stats.LastSession) {
			stats.LastSession = &d
		}
	}
	if len(rows) > 0 {
		stats.AttendanceRate = float64(attended) / float64(len(rows))
	}
	return stats, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -- Tests --

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	err := svc.Create(ctx, &Session{PatientID: 1})
	if !IsValidation(err) {
		t.Errorf("expected ValidationError for missing date, got %v", err)
	}

	err = svc.Create(ctx, &Session{PatientID: 1, Date: day(2024, 1, 1), Price: -5})
	if !IsValidation(err) {
		t.Errorf("expected ValidationError for negative price, got %v", err)
	}

	err = svc.Create(ctx, &Session{Date: day(2024, 1, 1)})
	if !IsValidation(err) {
		t.Errorf("expected ValidationError for missing patient, got %v", err)
	}
}

func TestCreate_TrimsNotes(t *testing.T) {
	svc := NewService(newMockRepo())
	blank := "  "
	s := &Session{PatientID: 1, Date: day(2024, 1, 1), Notes: &blank}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Notes != nil {
		t.Error("expected blank notes folded to nil")
	}
}

func TestUpdate_Absent(t *testing.T) {
	svc := NewService(newMockRepo())
	err := svc.Update(context.Background(), &Session{ID: 9, PatientID: 1, Date: day(2024, 1, 1)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	seed := []Session{
		{PatientID: 1, Date: day(2024, 3, 5), Price: 200, Attended: true},
		{PatientID: 1, Date: day(2024, 1, 10), Price: 150, Attended: true},
		{PatientID: 1, Date: day(2024, 5, 20), Price: 200, Attended: false},
		{PatientID: 2, Date: day(2024, 2, 2), Price: 999, Attended: true},
	}
	for i := range seed {
		if err := svc.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	stats, err := svc.StatsByPatient(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalSessions != 3 {
		t.Errorf("expected 3 sessions, got %d", stats.TotalSessions)
	}
	if stats.TotalRevenue != 550 {
		t.Errorf("expected revenue 550, got %v", stats.TotalRevenue)
	}
	if math.Abs(stats.AttendanceRate-2.0/3.0) > 1e-9 {
		t.Errorf("expected attendance 2/3, got %v", stats.AttendanceRate)
	}
	if stats.FirstSession == nil || !stats.FirstSession.Equal(day(2024, 1, 10)) {
		t.Errorf("unexpected first session: %v", stats.FirstSession)
	}
	if stats.LastSession == nil || !stats.LastSession.Equal(day(2024, 5, 20)) {
		t.Errorf("unexpected last session: %v", stats.LastSession)
	}
}

func TestStats_NoSessions(t *testing.T) {
	svc := NewService(newMockRepo())
	stats, err := svc.StatsByPatient(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalSessions != 0 || stats.AttendanceRate != 0 || stats.FirstSession != nil {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}
