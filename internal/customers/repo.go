package customers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// Repository manages customer persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	SaveContractPrice(ctx context.Context, customerID, productID uuid.UUID, price decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// SaveContractPrice records a newly established contract price after an order
// commits. Best effort: the customer's pricing type may have changed while the
// order was in flight, and an existing entry is never overwritten.
func (r *repository) SaveContractPrice(ctx context.Context, customerID, productID uuid.UUID, price decimal.Decimal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, "id = ?", customerID).Error; err != nil {
			return err
		}
		if customer.PricingType != enums.PricingTypeContract {
			return nil
		}
		if customer.ContractPrices.Has(productID) {
			return nil
		}
		return tx.Model(&models.Customer{}).
			Where("id = ?", customerID).
			Update("contract_prices", customer.ContractPrices.With(productID, price)).Error
	})
}
