package persistence

import (
	"context"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAllocationDetailRepository implements ledger.AllocationDetailRepository using GORM
type GormAllocationDetailRepository struct {
	db *gorm.DB
}

// NewGormAllocationDetailRepository creates a new GormAllocationDetailRepository
func NewGormAllocationDetailRepository(db *gorm.DB) *GormAllocationDetailRepository {
	return &GormAllocationDetailRepository{db: db}
}

// FindByMovement lists the details funded by one movement, in application order
func (r *GormAllocationDetailRepository) FindByMovement(ctx context.Context, movementID uuid.UUID) ([]ledger.AllocationDetail, error) {
	return r.find(r.db.WithContext(ctx).Where("cash_movement_id = ?", movementID))
}

// FindByInvoice lists the details applied to one invoice, oldest first
func (r *GormAllocationDetailRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]ledger.AllocationDetail, error) {
	return r.find(r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID))
}

func (r *GormAllocationDetailRepository) find(query *gorm.DB) ([]ledger.AllocationDetail, error) {
	var detailModels []models.AllocationDetailModel
	if err := query.Order("applied_at ASC").Order("id ASC").Find(&detailModels).Error; err != nil {
		return nil, err
	}
	details := make([]ledger.AllocationDetail, len(detailModels))
	for i := range detailModels {
		details[i] = detailModels[i].ToDomain()
	}
	return details, nil
}

// CreateBatch inserts details in one statement
func (r *GormAllocationDetailRepository) CreateBatch(ctx context.Context, details []ledger.AllocationDetail) error {
	if len(details) == 0 {
		return nil
	}
	detailModels := make([]models.AllocationDetailModel, len(details))
	for i, d := range details {
		detailModels[i] = models.AllocationDetailModelFromDomain(d)
	}
	return r.db.WithContext(ctx).Create(&detailModels).Error
}

// DeleteByMovement removes every detail of a movement and returns how many were removed
func (r *GormAllocationDetailRepository) DeleteByMovement(ctx context.Context, movementID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("cash_movement_id = ?", movementID).
		Delete(&models.AllocationDetailModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

var _ ledger.AllocationDetailRepository = (*GormAllocationDetailRepository)(nil)
