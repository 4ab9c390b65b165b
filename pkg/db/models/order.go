package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// Order is a customer order. TotalAmount always equals the sum of its lines'
// amounts; PaymentStatus is derived from PaidAmount versus TotalAmount. Orders
// are never deleted, only cancelled.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber      string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID       uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	Status           enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaidAmount       decimal.Decimal     `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'unpaid'"`
	IdempotencyKey   *string             `gorm:"column:idempotency_key;uniqueIndex:uq_orders_idempotency_key"`
	Notes            *string             `gorm:"column:notes"`
	BatchID          *uuid.UUID          `gorm:"column:batch_id;type:uuid;index"`
	PackingCompleted bool                `gorm:"column:packing_completed;not null;default:false"`
	PackedAt         *time.Time          `gorm:"column:packed_at"`
	ShippedAt        *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	CreatedBy        uuid.UUID           `gorm:"column:created_by;type:uuid;not null"`
	Lines            []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	AuditLog         []PriceAuditEntry   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
