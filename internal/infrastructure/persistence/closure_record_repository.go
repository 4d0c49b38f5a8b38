package persistence

import (
	"context"
	"errors"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormClosureRecordRepository implements ledger.ClosureRecordRepository using GORM
type GormClosureRecordRepository struct {
	db *gorm.DB
}

// NewGormClosureRecordRepository creates a new GormClosureRecordRepository
func NewGormClosureRecordRepository(db *gorm.DB) *GormClosureRecordRepository {
	return &GormClosureRecordRepository{db: db}
}

// FindByDate finds the closure record of a business date
func (r *GormClosureRecordRepository) FindByDate(ctx context.Context, date valueobject.BusinessDate) (*ledger.ClosureRecord, error) {
	return r.first(r.db.WithContext(ctx).Where("date = ?", date))
}

// FindByDateForUpdate finds the closure record of a business date and locks it
func (r *GormClosureRecordRepository) FindByDateForUpdate(ctx context.Context, date valueobject.BusinessDate) (*ledger.ClosureRecord, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)).Where("date = ?", date))
}

// FindLatestClosedBy returns the CLOSED record most recently closed by actorID
func (r *GormClosureRecordRepository) FindLatestClosedBy(ctx context.Context, actorID uuid.UUID) (*ledger.ClosureRecord, error) {
	return r.first(r.db.WithContext(ctx).
		Where("status = ? AND closed_by = ?", ledger.ClosureStatusClosed, actorID).
		Order("closed_at DESC").
		Order("date DESC"))
}

// FindClosedWithNextDate returns the most recent CLOSED record pointing at nextDate
func (r *GormClosureRecordRepository) FindClosedWithNextDate(ctx context.Context, nextDate valueobject.BusinessDate) (*ledger.ClosureRecord, error) {
	return r.first(r.db.WithContext(ctx).
		Where("status = ? AND next_date = ?", ledger.ClosureStatusClosed, nextDate).
		Order("closed_at DESC").
		Order("date DESC"))
}

func (r *GormClosureRecordRepository) first(query *gorm.DB) (*ledger.ClosureRecord, error) {
	var model models.ClosureRecordModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistsOnOrAfter reports whether any date on or after date has a record
func (r *GormClosureRecordRepository) ExistsOnOrAfter(ctx context.Context, date valueobject.BusinessDate) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ClosureRecordModel{}).
		Where("date >= ?", date).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindRange lists records with from <= date <= to, oldest first
func (r *GormClosureRecordRepository) FindRange(ctx context.Context, from, to valueobject.BusinessDate) ([]ledger.ClosureRecord, error) {
	var recordModels []models.ClosureRecordModel
	if err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}
	records := make([]ledger.ClosureRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, nil
}

// Create inserts a new closure record
func (r *GormClosureRecordRepository) Create(ctx context.Context, rec *ledger.ClosureRecord) error {
	return r.db.WithContext(ctx).Create(models.ClosureRecordModelFromDomain(rec)).Error
}

// SaveWithLock updates a record if its stored version still matches rec.Version,
// then bumps the version on both sides
func (r *GormClosureRecordRepository) SaveWithLock(ctx context.Context, rec *ledger.ClosureRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.ClosureRecordModel{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]any{
			"next_date":     rec.NextDate,
			"status":        rec.Status,
			"closed_by":     rec.ClosedBy,
			"closed_at":     rec.ClosedAt,
			"reopened_by":   rec.ReopenedBy,
			"reopened_at":   rec.ReopenedAt,
			"reopen_reason": rec.ReopenReason,
			"version":       rec.Version + 1,
			"updated_at":    rec.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newConcurrencyConflict("Closure record", rec.Date.String())
	}
	rec.Version++
	return nil
}

var _ ledger.ClosureRecordRepository = (*GormClosureRecordRepository)(nil)
