package persistence

import (
	"context"
	"errors"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWorkingDateRepository implements ledger.WorkingDateRepository using GORM
type GormWorkingDateRepository struct {
	db *gorm.DB
}

// NewGormWorkingDateRepository creates a new GormWorkingDateRepository
func NewGormWorkingDateRepository(db *gorm.DB) *GormWorkingDateRepository {
	return &GormWorkingDateRepository{db: db}
}

// Get returns the working date, or nil before first run
func (r *GormWorkingDateRepository) Get(ctx context.Context) (*ledger.WorkingDate, error) {
	return r.find(r.db.WithContext(ctx))
}

// GetForUpdate returns the working date and locks its row
func (r *GormWorkingDateRepository) GetForUpdate(ctx context.Context) (*ledger.WorkingDate, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)))
}

func (r *GormWorkingDateRepository) find(db *gorm.DB) (*ledger.WorkingDate, error) {
	var model models.WorkingDateModel
	if err := db.First(&model, "id = ?", models.WorkingDateSingletonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// InsertIfAbsent stores wd unless another process already created the row
func (r *GormWorkingDateRepository) InsertIfAbsent(ctx context.Context, wd *ledger.WorkingDate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.WorkingDateModelFromDomain(wd)).Error
}

// Save overwrites the working date
func (r *GormWorkingDateRepository) Save(ctx context.Context, wd *ledger.WorkingDate) error {
	return r.db.WithContext(ctx).Save(models.WorkingDateModelFromDomain(wd)).Error
}

var _ ledger.WorkingDateRepository = (*GormWorkingDateRepository)(nil)
