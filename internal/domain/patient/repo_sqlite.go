package patient

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

type repoSQLite struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) Repository {
	return &repoSQLite{db: db}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *repoSQLite) existsCIN(ctx context.Context, cin string, excludeID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&Patient{}).Where("lower(cin) = lower(?)", cin)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repoSQLite) Create(ctx context.Context, p *Patient) error {
	exists, err := r.existsCIN(ctx, p.CIN, 0)
	if err != nil {
		return err
	}
	if exists {
		return &ConflictError{CIN: p.CIN}
	}
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{CIN: p.CIN}
		}
		return err
	}
	return nil
}

func (r *repoSQLite) Update(ctx context.Context, p *Patient) error {
	exists, err := r.existsCIN(ctx, p.CIN, p.ID)
	if err != nil {
		return err
	}
	if exists {
		return &ConflictError{CIN: p.CIN}
	}

	// Map form so cleared optional fields are written as NULL.
	res := r.db.WithContext(ctx).Model(&Patient{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"cin":        p.CIN,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"birth_date": p.BirthDate,
		"phone":      p.Phone,
		"email":      p.Email,
		"notes":      p.Notes,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return &ConflictError{CIN: p.CIN}
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoSQLite) GetByID(ctx context.Context, id uint) (*Patient, error) {
	var p Patient
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoSQLite) GetByCIN(ctx context.Context, cin string) (*Patient, error) {
	var p Patient
	err := r.db.WithContext(ctx).Where("lower(cin) = lower(?)", cin).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoSQLite) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Cascade to dependent session records first.
		if err := tx.Exec("DELETE FROM sessions WHERE patient_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Patient{}, id).Error
	})
}

const searchClause = `lower(cin) LIKE ?
	OR lower(first_name) LIKE ?
	OR lower(last_name) LIKE ?
	OR lower(coalesce(phone, '')) LIKE ?
	OR lower(coalesce(email, '')) LIKE ?
	OR lower(coalesce(notes, '')) LIKE ?
	OR coalesce(strftime('%Y-%m-%d', birth_date), '') LIKE ?`

func (r *repoSQLite) Search(ctx context.Context, q string) ([]*Patient, error) {
	query := r.db.WithContext(ctx).Model(&Patient{}).Order("last_name, first_name")
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(searchClause, like, like, like, like, like, like, like)
	}
	var rows []*Patient
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repoSQLite) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Patient{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*Patient
	err := r.db.WithContext(ctx).
		Order("last_name, first_name").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, int(total), nil
}
