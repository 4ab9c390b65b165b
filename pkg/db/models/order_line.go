package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// OrderLine snapshots one priced item within an order. Amount is always
// round2(Quantity*Rate). Contract-priced lines are permanently locked to the
// snapshot rate.
type OrderLine struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string          `gorm:"column:product_name;not null"`
	Unit            enums.Unit      `gorm:"column:unit;type:product_unit;not null"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null"`
	Rate            decimal.Decimal `gorm:"column:rate;type:numeric(12,2);not null"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	IsContractPrice bool            `gorm:"column:is_contract_price;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
