package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/pagination"
)

// Repository manages the customer balance and its append-only history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// ApplyDelta atomically adds delta to the customer's stored balance and
	// returns the resulting balance corrected to two decimals. Concurrent
	// deltas against the same customer are linearized by the store.
	ApplyDelta(ctx context.Context, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	Append(ctx context.Context, entry *models.LedgerEntry) error
	LastBefore(ctx context.Context, customerID uuid.UUID, start time.Time) (*models.LedgerEntry, error)
	ListRange(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]models.LedgerEntry, error)
	ListPage(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ApplyDelta(ctx context.Context, customerID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	result := r.db.WithContext(ctx).Raw(
		`UPDATE customers SET balance = balance + ? WHERE id = ? RETURNING balance`,
		delta, customerID,
	).Scan(&balance)
	if result.Error != nil {
		return decimal.Decimal{}, result.Error
	}
	if result.RowsAffected == 0 {
		return decimal.Decimal{}, gorm.ErrRecordNotFound
	}

	// correct any rounding drift between the stored value and its 2dp form
	rounded := balance.Round(2)
	if !balance.Equal(rounded) {
		if err := r.db.WithContext(ctx).Exec(
			`UPDATE customers SET balance = ? WHERE id = ?`,
			rounded, customerID,
		).Error; err != nil {
			return decimal.Decimal{}, err
		}
	}
	return rounded, nil
}

func (r *repository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) LastBefore(ctx context.Context, customerID uuid.UUID, start time.Time) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND date < ?", customerID, start).
		Order("date DESC, created_at DESC").
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListRange(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND date >= ? AND date < ?", customerID, start, end).
		Order("date ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListPage(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.LedgerEntry, error) {
	q := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC")
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.LedgerEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
