package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// LedgerEntry records an immutable balance-affecting event for a customer.
// Amount is the signed delta (payments negative); Balance is the customer's
// resulting balance immediately after this entry, snapshotted at write time
// and never recomputed.
type LedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID  uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Balance     decimal.Decimal       `gorm:"column:balance;type:numeric(12,2);not null"`
	Date        time.Time             `gorm:"column:date;not null;index"`
	Description string                `gorm:"column:description;not null"`
	Notes       *string               `gorm:"column:notes"`
	CreatedBy   uuid.UUID             `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
