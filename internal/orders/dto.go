package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// Actor identifies who is performing a write and with which role.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// CreateOrderInput captures a new order request.
type CreateOrderInput struct {
	CustomerID     uuid.UUID
	Lines          []CreateOrderLineInput
	IdempotencyKey *string
	Notes          *string
	Actor          Actor
}

// CreateOrderLineInput is one requested line. Rate is the optional staff
// override; pricing resolution decides whether it applies.
type CreateOrderLineInput struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	Rate      *decimal.Decimal
}

// CreateOrderResult returns the persisted (or pre-existing) order. Idempotent
// is true when the idempotency key matched an earlier order and no new order
// was created.
type CreateOrderResult struct {
	Order      *models.Order
	Idempotent bool
}

// UpdateStatusInput requests one lifecycle transition.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Actor   Actor
}

// UpdatePricesInput carries rate-only edits to existing lines.
type UpdatePricesInput struct {
	OrderID uuid.UUID
	Lines   []LineRateInput
	Reason  *string
	Actor   Actor
}

// LineRateInput sets a new rate on one line.
type LineRateInput struct {
	LineID uuid.UUID
	Rate   decimal.Decimal
}

// RecordOrderPaymentInput sets the absolute amount paid against an order.
type RecordOrderPaymentInput struct {
	OrderID    uuid.UUID
	PaidAmount decimal.Decimal
	Actor      Actor
}

// ReducePackedQuantityInput is the packing collaborator's quantity correction
// for a short-packed line.
type ReducePackedQuantityInput struct {
	OrderID  uuid.UUID
	LineID   uuid.UUID
	Quantity decimal.Decimal
	Reason   *string
	Actor    Actor
}

// PackingInput reports packing progress on an order.
type PackingInput struct {
	OrderID   uuid.UUID
	Completed bool
	Actor     Actor
}

// AssignBatchInput attaches an order to a fulfillment batch.
type AssignBatchInput struct {
	OrderID uuid.UUID
	BatchID uuid.UUID
	Actor   Actor
}

// BatchAdvanceResult reports a bulk advance over one batch. Orders fail
// individually; a failure never rolls back its siblings.
type BatchAdvanceResult struct {
	Advanced int                 `json:"advanced"`
	Failed   []BatchOrderFailure `json:"failed,omitempty"`
}

// BatchOrderFailure identifies one order the bulk advance could not move.
type BatchOrderFailure struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
}
