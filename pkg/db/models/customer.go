package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/pkg/enums"
	"github.com/mandibook/mandibook-backend/pkg/types"
)

// Customer represents a buyer account. Balance is the signed running total the
// customer owes (positive = owed to us) and is mutated only by the ledger
// repository. Customers are soft-deleted via IsActive.
type Customer struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string               `gorm:"column:name;not null"`
	Phone            *string              `gorm:"column:phone"`
	PricingType      enums.PricingType    `gorm:"column:pricing_type;type:pricing_type;not null;default:'market'"`
	MarkupPercentage decimal.Decimal      `gorm:"column:markup_percentage;type:numeric(5,2);not null;default:0"`
	ContractPrices   types.ContractPrices `gorm:"column:contract_prices;type:jsonb;serializer:json"`
	Balance          decimal.Decimal      `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	IsActive         bool                 `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
