package rates

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
)

// Repository manages the append-only market rate time series.
type Repository interface {
	Create(ctx context.Context, rate *models.MarketRate) error
	// Current returns the most recent rate for a product.
	Current(ctx context.Context, productID uuid.UUID) (*models.MarketRate, error)
	// CurrentForProducts fetches the latest rate per product in one pass so
	// every line of an order prices against the same snapshot.
	CurrentForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
	History(ctx context.Context, productID uuid.UUID, limit int) ([]models.MarketRate, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a market rate repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rate *models.MarketRate) error {
	return r.db.WithContext(ctx).Create(rate).Error
}

func (r *repository) Current(ctx context.Context, productID uuid.UUID) (*models.MarketRate, error) {
	var rate models.MarketRate
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("effective_date DESC, created_at DESC").
		First(&rate).Error; err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CurrentForProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	current := make(map[uuid.UUID]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return current, nil
	}

	var rows []models.MarketRate
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("effective_date DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	// rows arrive newest first; keep the first one seen per product
	for _, row := range rows {
		if _, ok := current[row.ProductID]; !ok {
			current[row.ProductID] = row.Rate
		}
	}
	return current, nil
}

func (r *repository) History(ctx context.Context, productID uuid.UUID, limit int) ([]models.MarketRate, error) {
	var rows []models.MarketRate
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("effective_date DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
