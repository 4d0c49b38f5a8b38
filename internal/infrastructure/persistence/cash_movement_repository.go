package persistence

import (
	"context"
	"errors"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCashMovementRepository implements ledger.CashMovementRepository using GORM
type GormCashMovementRepository struct {
	db *gorm.DB
}

// NewGormCashMovementRepository creates a new GormCashMovementRepository
func NewGormCashMovementRepository(db *gorm.DB) *GormCashMovementRepository {
	return &GormCashMovementRepository{db: db}
}

// FindByID finds a cash movement by ID
func (r *GormCashMovementRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CashMovement, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a cash movement by ID and locks its row
func (r *GormCashMovementRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.CashMovement, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormCashMovementRepository) first(db *gorm.DB, id uuid.UUID) (*ledger.CashMovement, error) {
	var model models.CashMovementModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SumForDate counts the recoveries of a business date and sums their amount
func (r *GormCashMovementRepository) SumForDate(ctx context.Context, date valueobject.BusinessDate) (ledger.DailyTotals, error) {
	var sum dailySum
	if err := r.db.WithContext(ctx).
		Model(&models.CashMovementModel{}).
		Select("COUNT(*) AS count, SUM(amount) AS total").
		Where("business_date = ? AND kind = ?", date, ledger.MovementKindRecovery).
		Scan(&sum).Error; err != nil {
		return ledger.DailyTotals{}, err
	}
	return sum.toTotals(), nil
}

// Create inserts a new cash movement
func (r *GormCashMovementRepository) Create(ctx context.Context, m *ledger.CashMovement) error {
	return r.db.WithContext(ctx).Create(models.CashMovementModelFromDomain(m)).Error
}

// SaveWithLock writes amount, mode and reference if the stored version still
// matches m.Version, then bumps the version on both sides
func (r *GormCashMovementRepository) SaveWithLock(ctx context.Context, m *ledger.CashMovement) error {
	result := r.db.WithContext(ctx).
		Model(&models.CashMovementModel{}).
		Where("id = ? AND version = ?", m.ID, m.Version).
		Updates(map[string]any{
			"amount":     m.Amount,
			"mode":       m.Mode,
			"reference":  m.Reference,
			"version":    m.Version + 1,
			"updated_at": m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newConcurrencyConflict("Cash movement", m.Reference)
	}
	m.IncrementVersion()
	return nil
}

// Delete removes a cash movement
func (r *GormCashMovementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CashMovementModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ ledger.CashMovementRepository = (*GormCashMovementRepository)(nil)
