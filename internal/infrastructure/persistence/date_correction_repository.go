package persistence

import (
	"context"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDateCorrectionRepository implements ledger.DateCorrectionRepository using GORM.
// The table is append-only; there is no update or delete.
type GormDateCorrectionRepository struct {
	db *gorm.DB
}

// NewGormDateCorrectionRepository creates a new GormDateCorrectionRepository
func NewGormDateCorrectionRepository(db *gorm.DB) *GormDateCorrectionRepository {
	return &GormDateCorrectionRepository{db: db}
}

// Create appends a correction row
func (r *GormDateCorrectionRepository) Create(ctx context.Context, c *ledger.DateCorrection) error {
	return r.db.WithContext(ctx).Create(models.DateCorrectionModelFromDomain(c)).Error
}

// FindByRecord lists the corrections of one record, oldest first
func (r *GormDateCorrectionRepository) FindByRecord(ctx context.Context, sourceTable string, recordID uuid.UUID) ([]ledger.DateCorrection, error) {
	var correctionModels []models.DateCorrectionModel
	if err := r.db.WithContext(ctx).
		Where("source_table = ? AND record_id = ?", sourceTable, recordID).
		Order("created_at ASC").
		Find(&correctionModels).Error; err != nil {
		return nil, err
	}
	corrections := make([]ledger.DateCorrection, len(correctionModels))
	for i := range correctionModels {
		corrections[i] = correctionModels[i].ToDomain()
	}
	return corrections, nil
}

var _ ledger.DateCorrectionRepository = (*GormDateCorrectionRepository)(nil)
