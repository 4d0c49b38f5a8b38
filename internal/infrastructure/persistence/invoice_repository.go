package persistence

import (
	"context"
	"errors"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fifoOrder is the allocation order: oldest posting first, ties broken by
// creation time and number
const fifoOrder = "posted_at ASC, created_at ASC, number ASC"

// GormInvoiceRepository implements ledger.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	return r.first(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an invoice by ID and locks its row
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	return r.first(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormInvoiceRepository) first(db *gorm.DB, id uuid.UUID) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds invoices by IDs in FIFO order. Unknown IDs are skipped.
func (r *GormInvoiceRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ledger.Invoice, error) {
	return r.findByIDs(r.db.WithContext(ctx), ids)
}

// FindByIDsForUpdate finds invoices by IDs and locks their rows
func (r *GormInvoiceRepository) FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*ledger.Invoice, error) {
	return r.findByIDs(forUpdate(r.db.WithContext(ctx)), ids)
}

func (r *GormInvoiceRepository) findByIDs(db *gorm.DB, ids []uuid.UUID) ([]*ledger.Invoice, error) {
	if len(ids) == 0 {
		return []*ledger.Invoice{}, nil
	}
	return r.find(db.Where("id IN ?", ids))
}

// FindOutstanding returns the debtor's CREDIT invoices whose balance is not
// yet settled under policy, oldest first
func (r *GormInvoiceRepository) FindOutstanding(ctx context.Context, debtor ledger.DebtorRef, policy ledger.SettlementPolicy) ([]*ledger.Invoice, error) {
	return r.find(r.outstanding(r.db.WithContext(ctx), debtor, policy))
}

// FindOutstandingForUpdate is FindOutstanding with the rows locked
func (r *GormInvoiceRepository) FindOutstandingForUpdate(ctx context.Context, debtor ledger.DebtorRef, policy ledger.SettlementPolicy) ([]*ledger.Invoice, error) {
	return r.find(r.outstanding(forUpdate(r.db.WithContext(ctx)), debtor, policy))
}

func (r *GormInvoiceRepository) outstanding(db *gorm.DB, debtor ledger.DebtorRef, policy ledger.SettlementPolicy) *gorm.DB {
	query := db.Where("debtor_kind = ? AND debtor_id = ? AND status = ?",
		debtor.Kind, debtor.ID, ledger.InvoiceStatusCredit)
	// a zero balance is settled even when the epsilon is zero
	if policy.Epsilon.IsPositive() {
		return query.Where("balance_remaining >= ?", policy.Epsilon)
	}
	return query.Where("balance_remaining > ?", decimal.Zero)
}

func (r *GormInvoiceRepository) find(query *gorm.DB) ([]*ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := query.Order(fifoOrder).Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]*ledger.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// dailySum is the scan target of the per-date aggregate queries
type dailySum struct {
	Count int64
	Total decimal.NullDecimal
}

func (s dailySum) toTotals() ledger.DailyTotals {
	total := decimal.Zero
	if s.Total.Valid {
		total = s.Total.Decimal
	}
	return ledger.DailyTotals{Count: s.Count, Total: total}
}

// SumForDate counts the invoices of a business date and sums their amount due
func (r *GormInvoiceRepository) SumForDate(ctx context.Context, date valueobject.BusinessDate) (ledger.DailyTotals, error) {
	var sum dailySum
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("COUNT(*) AS count, SUM(amount_due) AS total").
		Where("business_date = ?", date).
		Scan(&sum).Error; err != nil {
		return ledger.DailyTotals{}, err
	}
	return sum.toTotals(), nil
}

// Create inserts a new invoice
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *ledger.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(inv)).Error
}

// SaveWithLock writes the mutable invoice fields if the stored version still
// matches inv.Version, then bumps the version on both sides
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *ledger.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version).
		Updates(map[string]any{
			"description":       inv.Description,
			"balance_remaining": inv.BalanceRemaining,
			"status":            inv.Status,
			"posted_at":         inv.PostedAt,
			"business_date":     inv.BusinessDate(),
			"version":           inv.Version + 1,
			"updated_at":        inv.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newConcurrencyConflict("Invoice", inv.Number)
	}
	inv.IncrementVersion()
	return nil
}

var _ ledger.InvoiceRepository = (*GormInvoiceRepository)(nil)
