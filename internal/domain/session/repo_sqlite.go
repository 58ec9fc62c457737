package session

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type repoSQLite struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repoSQLite{db: db}
}

func (r *repoSQLite) Create(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *repoSQLite) Update(ctx context.Context, s *Session) error {
	res := r.db.WithContext(ctx).Model(&Session{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"date":     s.Date,
		"price":    s.Price,
		"attended": s.Attended,
		"notes":    s.Notes,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id uint) (*Session, error) {
	var s Session
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoSQLite) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&Session{}, id).Error
}

func (r *repoSQLite) ListByPatient(ctx context.Context, patientID uint) ([]*Session, error) {
	var rows []*Session
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("date").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repoSQLite) StatsByPatient(ctx context.Context, patientID uint) (*Stats, error) {
	stats := &Stats{PatientID: patientID}

	var agg struct {
		Total    int64
		Attended int64
		Revenue  float64
	}
	err := r.db.WithContext(ctx).Model(&Session{}).
		Select("count(*) as total, sum(case when attended then 1 else 0 end) as attended, coalesce(sum(price), 0) as revenue").
		Where("patient_id = ?", patientID).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	stats.TotalSessions = int(agg.Total)
	stats.TotalRevenue = agg.Revenue
	if agg.Total > 0 {
		stats.AttendanceRate = float64(agg.Attended) / float64(agg.Total)

		var first, last Session
		if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).
			Order("date").First(&first).Error; err != nil {
			return nil, err
		}
		if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).
			Order("date desc").First(&last).Error; err != nil {
			return nil, err
		}
		stats.FirstSession = &first.Date
		stats.LastSession = &last.Date
	}

	return stats, nil
}
