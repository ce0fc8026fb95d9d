package postgres

import (
	"errors"
	"time"

	"github.com/safetyops/permit-management/internal/auth"
	"github.com/safetyops/permit-management/internal/permit"
	"gorm.io/gorm"
)

// PermitRepository implements the permit.RepositoryAPI interface using GORM.
// Every query starts from scoped(), so no code path can bypass the caller's
// visibility filter.
type PermitRepository struct {
	db *gorm.DB
}

func NewPermitRepository(db *gorm.DB) permit.RepositoryAPI {
	return &PermitRepository{db: db}
}

func (r *PermitRepository) scoped(scope auth.Scope) *gorm.DB {
	tx := r.db.Model(&permit.Permit{})
	if scope.All {
		return tx
	}
	return tx.Where("created_by = ?", scope.UserID)
}

func (r *PermitRepository) Create(p *permit.Permit) error {
	return r.db.Create(p).Error
}

func (r *PermitRepository) GetByID(scope auth.Scope, id int64) (*permit.Permit, error) {
	var p permit.Permit
	err := r.scoped(scope).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permit.ErrPermitNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PermitRepository) GetAll(scope auth.Scope) ([]*permit.Permit, error) {
	var permits []*permit.Permit
	err := r.scoped(scope).
		Order("created_at DESC").
		Find(&permits).Error
	return permits, err
}

func (r *PermitRepository) Update(p *permit.Permit) error {
	return r.db.Save(p).Error
}

func (r *PermitRepository) Delete(scope auth.Scope, id int64) error {
	result := r.scoped(scope).Where("id = ?", id).Delete(&permit.Permit{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return permit.ErrPermitNotFound
	}
	return nil
}

func (r *PermitRepository) Search(scope auth.Scope, q permit.SearchQuery) ([]*permit.Permit, error) {
	tx := r.scoped(scope)

	tx = likeFilter(tx, "po_number", q.PONumber)
	tx = likeFilter(tx, "permit_number", q.PermitNumber)
	tx = likeFilter(tx, "employee_name", q.EmployeeName)
	tx = likeFilter(tx, "permit_type", q.PermitType)
	tx = likeFilter(tx, "permit_status", q.PermitStatus)

	if q.IssueDateFrom != nil {
		tx = tx.Where("issue_date >= ?", *q.IssueDateFrom)
	}
	if q.IssueDateTo != nil {
		tx = tx.Where("issue_date <= ?", *q.IssueDateTo)
	}

	var permits []*permit.Permit
	err := tx.Order("created_at DESC").Find(&permits).Error
	return permits, err
}

// likeFilter adds a case-insensitive substring condition when value is set.
// LOWER/LIKE works identically on Postgres and the SQLite test driver.
func likeFilter(tx *gorm.DB, column, value string) *gorm.DB {
	if value == "" {
		return tx
	}
	return tx.Where("LOWER("+column+") LIKE LOWER(?)", "%"+value+"%")
}

func (r *PermitRepository) Stats(scope auth.Scope, now time.Time) (*permit.Stats, error) {
	stats := &permit.Stats{}

	counts := []struct {
		dest *int64
		cond func(tx *gorm.DB) *gorm.DB
	}{
		{&stats.Total, func(tx *gorm.DB) *gorm.DB { return tx }},
		{&stats.Pending, func(tx *gorm.DB) *gorm.DB { return tx.Where("permit_status = ?", permit.StatusPending) }},
		{&stats.Approved, func(tx *gorm.DB) *gorm.DB { return tx.Where("permit_status = ?", permit.StatusApproved) }},
		{&stats.Rejected, func(tx *gorm.DB) *gorm.DB { return tx.Where("permit_status = ?", permit.StatusRejected) }},
		{&stats.Expired, func(tx *gorm.DB) *gorm.DB { return tx.Where("expiry_date < ?", now) }},
	}

	for _, c := range counts {
		if err := c.cond(r.scoped(scope)).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	return stats, nil
}
