package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MarketRate is one point in the append-only daily rate series for a product.
// The current rate is the most recent entry by (effective_date, created_at).
type MarketRate struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Rate          decimal.Decimal `gorm:"column:rate;type:numeric(12,2);not null"`
	EffectiveDate time.Time       `gorm:"column:effective_date;type:date;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}
