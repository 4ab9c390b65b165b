package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
)

// Service records daily market rates and serves rate lookups.
type Service interface {
	Record(ctx context.Context, input RecordRatesInput) (*RecordRatesResult, error)
	Current(ctx context.Context, productID uuid.UUID) (*models.MarketRate, error)
	History(ctx context.Context, productID uuid.UUID, limit int) ([]models.MarketRate, error)
}

// RecordRatesInput is the dashboard's bulk rate submission.
type RecordRatesInput struct {
	EffectiveDate time.Time
	Items         []RateItem
}

// RateItem is one product's rate for the effective date.
type RateItem struct {
	ProductID uuid.UUID
	Rate      decimal.Decimal
}

// RecordRatesResult reports per-item outcomes. Bulk saving is deliberately
// non-transactional: successes commit, failures are reported back, nothing
// rolls back.
type RecordRatesResult struct {
	Saved  []models.MarketRate `json:"saved"`
	Failed []RateFailure       `json:"failed"`
}

// RateFailure identifies one rejected item and why.
type RateFailure struct {
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}

type service struct {
	repo Repository
}

// NewService wires a market rate service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rates repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordRatesInput) (*RecordRatesResult, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one rate item required")
	}
	effective := input.EffectiveDate
	if effective.IsZero() {
		effective = time.Now().UTC()
	}

	result := &RecordRatesResult{}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			result.Failed = append(result.Failed, RateFailure{ProductID: item.ProductID, Reason: "product id required"})
			continue
		}
		if !item.Rate.IsPositive() {
			result.Failed = append(result.Failed, RateFailure{ProductID: item.ProductID, Reason: "rate must be positive"})
			continue
		}

		rate := models.MarketRate{
			ProductID:     item.ProductID,
			Rate:          item.Rate.Round(2),
			EffectiveDate: effective,
		}
		if err := s.repo.Create(ctx, &rate); err != nil {
			result.Failed = append(result.Failed, RateFailure{ProductID: item.ProductID, Reason: err.Error()})
			continue
		}
		result.Saved = append(result.Saved, rate)
	}
	return result, nil
}

func (s *service) Current(ctx context.Context, productID uuid.UUID) (*models.MarketRate, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	rate, err := s.repo.Current(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no market rate recorded for product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market rate")
	}
	return rate, nil
}

func (s *service) History(ctx context.Context, productID uuid.UUID, limit int) ([]models.MarketRate, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	rows, err := s.repo.History(ctx, productID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rate history")
	}
	return rows, nil
}
