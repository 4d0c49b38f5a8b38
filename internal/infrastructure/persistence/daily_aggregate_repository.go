package persistence

import (
	"context"
	"errors"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDailyAggregateRepository implements ledger.DailyAggregateRepository using GORM
type GormDailyAggregateRepository struct {
	db *gorm.DB
}

// NewGormDailyAggregateRepository creates a new GormDailyAggregateRepository
func NewGormDailyAggregateRepository(db *gorm.DB) *GormDailyAggregateRepository {
	return &GormDailyAggregateRepository{db: db}
}

// FindByDate returns the aggregate of a business date, or nil if never computed
func (r *GormDailyAggregateRepository) FindByDate(ctx context.Context, date valueobject.BusinessDate) (*ledger.DailyAggregate, error) {
	var model models.DailyAggregateModel
	if err := r.db.WithContext(ctx).First(&model, "date = ?", date).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert replaces the aggregate of agg.Date with freshly summed totals
func (r *GormDailyAggregateRepository) Upsert(ctx context.Context, agg *ledger.DailyAggregate) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"invoice_count", "invoice_total_due", "recovery_count", "recovery_total", "recomputed_at",
			}),
		}).
		Create(models.DailyAggregateModelFromDomain(agg)).Error
}

var _ ledger.DailyAggregateRepository = (*GormDailyAggregateRepository)(nil)
