package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceAuditEntry records one rate or quantity change on an order line.
// Entries are append-only and never edited or removed.
type PriceAuditEntry struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	LineID      uuid.UUID       `gorm:"column:line_id;type:uuid;not null"`
	OldRate     decimal.Decimal `gorm:"column:old_rate;type:numeric(12,2);not null"`
	NewRate     decimal.Decimal `gorm:"column:new_rate;type:numeric(12,2);not null"`
	OldQuantity decimal.Decimal `gorm:"column:old_quantity;type:numeric(12,3);not null"`
	NewQuantity decimal.Decimal `gorm:"column:new_quantity;type:numeric(12,3);not null"`
	ActorID     uuid.UUID       `gorm:"column:actor_id;type:uuid;not null"`
	Reason      *string         `gorm:"column:reason"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
