package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mandibook/mandibook-backend/internal/counters"
	"github.com/mandibook/mandibook-backend/internal/customers"
	"github.com/mandibook/mandibook-backend/internal/pricing"
	"github.com/mandibook/mandibook-backend/internal/products"
	"github.com/mandibook/mandibook-backend/internal/rates"
	"github.com/mandibook/mandibook-backend/pkg/db"
	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
	"github.com/mandibook/mandibook-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type counterSource interface {
	NextInTx(ctx context.Context, tx *gorm.DB, key string) (int64, error)
}

type invoicePoster interface {
	RecordInvoice(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, amount decimal.Decimal, description string, createdBy uuid.UUID) (*models.LedgerEntry, error)
}

// Service drives the order lifecycle: idempotent creation, status
// transitions, price edits, payments, packing corrections, batch assignment.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	UpdatePrices(ctx context.Context, input UpdatePricesInput) (*models.Order, error)
	RecordPayment(ctx context.Context, input RecordOrderPaymentInput) (*models.Order, error)
	ReducePackedQuantity(ctx context.Context, input ReducePackedQuantityInput) (*models.Order, error)
	SetPacking(ctx context.Context, input PackingInput) (*models.Order, error)
	AssignBatch(ctx context.Context, input AssignBatchInput) (*models.Order, error)
	AdvanceBatch(ctx context.Context, batchID uuid.UUID, actor Actor) (*BatchAdvanceResult, error)
	ConfirmBatchedOrders(ctx context.Context, actor Actor) (int, error)
}

type service struct {
	repo      Repository
	customers customers.Repository
	products  products.Repository
	rates     rates.Repository
	counter   counterSource
	invoices  invoicePoster
	tx        txRunner
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the order service with its collaborators.
func NewService(
	repo Repository,
	customerRepo customers.Repository,
	productRepo products.Repository,
	rateRepo rates.Repository,
	counter counterSource,
	invoices invoicePoster,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if rateRepo == nil {
		return nil, fmt.Errorf("rates repository required")
	}
	if counter == nil {
		return nil, fmt.Errorf("counter source required")
	}
	if invoices == nil {
		return nil, fmt.Errorf("invoice poster required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      repo,
		customers: customerRepo,
		products:  productRepo,
		rates:     rateRepo,
		counter:   counter,
		invoices:  invoices,
		tx:        tx,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if !customer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer is inactive")
	}

	productIDs := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required on every line")
		}
		if !line.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if line.Rate != nil && !line.Rate.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate override must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		productIDs = append(productIDs, line.ProductID)
	}

	productRows, err := s.products.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	productsByID := make(map[uuid.UUID]models.Product, len(productRows))
	for _, p := range productRows {
		productsByID[p.ID] = p
	}

	// one market snapshot for the whole order keeps lines internally consistent
	marketSnapshot, err := s.rates.CurrentForProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market rates")
	}

	snapshot := pricing.CustomerSnapshot{
		PricingType:      customer.PricingType,
		MarkupPercentage: customer.MarkupPercentage,
		ContractPrices:   customer.ContractPrices,
	}

	lines := make([]models.OrderLine, 0, len(input.Lines))
	total := decimal.Zero
	contractToSave := map[uuid.UUID]decimal.Decimal{}

	for _, line := range input.Lines {
		product, ok := productsByID[line.ProductID]
		if !ok || !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if product.Unit.RequiresWholeQuantity() && !line.Quantity.IsInteger() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a whole number for this unit").
				WithDetails(map[string]any{"product_id": line.ProductID, "unit": product.Unit})
		}

		// stale contract entries on markup/market customers must not mask a
		// missing market rate; only a contract customer's locked price does
		marketRate, hasMarketRate := marketSnapshot[line.ProductID]
		lockedPrice := snapshot.PricingType == enums.PricingTypeContract && snapshot.ContractPrices.Has(line.ProductID)
		needsMarketRate := line.Rate == nil && !lockedPrice
		if needsMarketRate && !hasMarketRate {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no market rate recorded for product").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}

		quote := pricing.Resolve(snapshot, line.ProductID, marketRate, line.Rate)
		if quote.SaveAsContractPrice {
			contractToSave[line.ProductID] = quote.Rate
		}

		amount := pricing.LineAmount(quote.Rate, line.Quantity)
		total = total.Add(amount)
		lines = append(lines, models.OrderLine{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Unit:            product.Unit,
			Quantity:        line.Quantity,
			Rate:            quote.Rate,
			Amount:          amount,
			IsContractPrice: quote.IsContractPrice,
		})
	}

	createdAt := s.now()
	order := &models.Order{
		ID:             uuid.New(),
		CustomerID:     customer.ID,
		Status:         enums.OrderStatusPending,
		TotalAmount:    total,
		PaidAmount:     decimal.Zero,
		PaymentStatus:  enums.PaymentStatusUnpaid,
		IdempotencyKey: input.IdempotencyKey,
		Notes:          input.Notes,
		CreatedBy:      input.Actor.UserID,
		Lines:          lines,
	}

	// the number is drawn inside the insert transaction, so a failed insert
	// rolls the counter increment back instead of burning a sequence
	insertErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sequence, err := s.counter.NextInTx(ctx, tx, counters.OrderKey(createdAt))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign order number")
		}
		order.OrderNumber = counters.FormatOrderNumber(createdAt, sequence)
		return s.repo.WithTx(tx).Insert(ctx, order)
	})
	if insertErr != nil {
		// a duplicate idempotency key means this logical request already
		// committed: hand back the original order instead of an error.
		// Other unique violations (order_number) are real failures.
		if input.IdempotencyKey != nil && db.IsUniqueViolation(insertErr, "uq_orders_idempotency_key") {
			existing, findErr := s.repo.FindByIdempotencyKey(ctx, *input.IdempotencyKey)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load order by idempotency key")
			}
			return &CreateOrderResult{Order: existing, Idempotent: true}, nil
		}
		if typed := pkgerrors.As(insertErr); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, insertErr, "insert order")
	}

	// best effort: the customer may have switched pricing type mid-flight,
	// in which case the save is silently skipped
	for productID, price := range contractToSave {
		if err := s.customers.SaveContractPrice(ctx, customer.ID, productID, price); err != nil && s.logg != nil {
			fields := map[string]any{"customer_id": customer.ID, "product_id": productID, "error": err.Error()}
			s.logg.Warn(s.logg.WithFields(ctx, fields), "saving contract price failed")
		}
	}

	return &CreateOrderResult{Order: order}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	orders, err := s.repo.ListByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": input.Status})
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	// cancellation is admin-only through every path; staff may only advance
	if input.Status == enums.OrderStatusCancelled && input.Actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may cancel orders")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// same-state request: accepted as a no-op, nothing re-validated
		if order.Status == input.Status {
			updated = order
			return nil
		}

		if !CanTransition(order.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot move from %s to %s", order.Status, input.Status)).
				WithDetails(map[string]any{"allowed_next": AllowedNext(order.Status)})
		}

		now := s.now()
		switch input.Status {
		case enums.OrderStatusPacked:
			order.PackedAt = &now
		case enums.OrderStatusShipped:
			order.ShippedAt = &now
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &now
		case enums.OrderStatusCancelled:
			order.CancelledAt = &now
		}

		if order.PackedAt != nil && order.ShippedAt != nil && order.ShippedAt.Before(*order.PackedAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipped time precedes packed time")
		}
		if order.ShippedAt != nil && order.DeliveredAt != nil && order.DeliveredAt.Before(*order.ShippedAt) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "delivered time precedes shipped time")
		}

		order.Status = input.Status
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		// delivery makes the charge final: raise the invoice in the same unit
		if input.Status == enums.OrderStatusDelivered {
			description := "Invoice " + order.OrderNumber
			if _, err := s.invoices.RecordInvoice(ctx, tx, order.CustomerID, order.TotalAmount, description, input.Actor.UserID); err != nil {
				return err
			}
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel is the dedicated cancellation action. Same admin-only rule as the
// status route; kept separate so the permission stays explicit at the call
// site.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may cancel orders")
	}
	return s.UpdateStatus(ctx, UpdateStatusInput{
		OrderID: orderID,
		Status:  enums.OrderStatusCancelled,
		Actor:   actor,
	})
}

func (s *service) UpdatePrices(ctx context.Context, input UpdatePricesInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line rate required")
	}
	for _, change := range input.Lines {
		if change.LineID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
		}
		if !change.Rate.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive").
				WithDetails(map[string]any{"line_id": change.LineID})
		}
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot edit a delivered or cancelled order")
		}

		linesByID := make(map[uuid.UUID]*models.OrderLine, len(order.Lines))
		for i := range order.Lines {
			linesByID[order.Lines[i].ID] = &order.Lines[i]
		}

		for _, change := range input.Lines {
			line, ok := linesByID[change.LineID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found").
					WithDetails(map[string]any{"line_id": change.LineID})
			}
			if line.IsContractPrice {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "contract line rate is locked").
					WithDetails(map[string]any{"line_id": change.LineID})
			}

			newRate := change.Rate.Round(2)
			if line.Rate.Equal(newRate) {
				continue
			}

			audit := &models.PriceAuditEntry{
				OrderID:     order.ID,
				LineID:      line.ID,
				OldRate:     line.Rate,
				NewRate:     newRate,
				OldQuantity: line.Quantity,
				NewQuantity: line.Quantity,
				ActorID:     input.Actor.UserID,
				Reason:      input.Reason,
			}
			if err := repo.AppendAudit(ctx, audit); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append price audit")
			}

			line.Rate = newRate
			line.Amount = pricing.LineAmount(newRate, line.Quantity)
			if err := repo.UpdateLine(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line rate")
			}
		}

		recomputeTotals(order)
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RecordPayment(ctx context.Context, input RecordOrderPaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.PaidAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid amount must not be negative")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		paid := input.PaidAmount.Round(2)
		if paid.GreaterThan(order.TotalAmount) {
			return pkgerrors.New(pkgerrors.CodeValidation, "paid amount exceeds order total").
				WithDetails(map[string]any{"total_amount": order.TotalAmount})
		}

		order.PaidAmount = paid
		order.PaymentStatus = derivePaymentStatus(paid, order.TotalAmount)
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReducePackedQuantity is the packing collaborator's correction path: while an
// order sits in confirmed, a short-packed line's quantity may shrink, never
// grow.
func (s *service) ReducePackedQuantity(ctx context.Context, input ReducePackedQuantityInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.LineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and line id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "packing corrections only apply to confirmed orders")
		}

		var line *models.OrderLine
		for i := range order.Lines {
			if order.Lines[i].ID == input.LineID {
				line = &order.Lines[i]
				break
			}
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order line not found")
		}
		if line.Unit.RequiresWholeQuantity() && !input.Quantity.IsInteger() {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be a whole number for this unit")
		}
		if input.Quantity.GreaterThanOrEqual(line.Quantity) {
			return pkgerrors.New(pkgerrors.CodeValidation, "packed quantity may only be reduced").
				WithDetails(map[string]any{"current_quantity": line.Quantity})
		}

		audit := &models.PriceAuditEntry{
			OrderID:     order.ID,
			LineID:      line.ID,
			OldRate:     line.Rate,
			NewRate:     line.Rate,
			OldQuantity: line.Quantity,
			NewQuantity: input.Quantity,
			ActorID:     input.Actor.UserID,
			Reason:      input.Reason,
		}
		if err := repo.AppendAudit(ctx, audit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append quantity audit")
		}

		line.Quantity = input.Quantity
		line.Amount = pricing.LineAmount(line.Rate, line.Quantity)
		if err := repo.UpdateLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line quantity")
		}

		recomputeTotals(order)
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) SetPacking(ctx context.Context, input PackingInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// an opaque flag owned by the packing subsystem; not interpreted here
		order.PackingCompleted = input.Completed
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update packing flag")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) AssignBatch(ctx context.Context, input AssignBatchInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.BatchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot batch a delivered or cancelled order")
		}

		batchID := input.BatchID
		order.BatchID = &batchID
		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign batch")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdvanceBatch pushes one batch's open orders a step forward: pending orders
// become confirmed, confirmed orders become processing. Each order moves
// independently; failures are reported back, not rolled back.
func (s *service) AdvanceBatch(ctx context.Context, batchID uuid.UUID, actor Actor) (*BatchAdvanceResult, error) {
	if batchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}

	open, err := s.repo.ListByBatch(ctx, batchID, []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batch orders")
	}

	result := &BatchAdvanceResult{}
	for _, order := range open {
		next := enums.OrderStatusConfirmed
		if order.Status == enums.OrderStatusConfirmed {
			next = enums.OrderStatusProcessing
		}
		_, err := s.UpdateStatus(ctx, UpdateStatusInput{
			OrderID: order.ID,
			Status:  next,
			Actor:   actor,
		})
		if err != nil {
			result.Failed = append(result.Failed, BatchOrderFailure{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Reason:      err.Error(),
			})
			continue
		}
		result.Advanced++
	}
	return result, nil
}

// ConfirmBatchedOrders advances every batched pending order to confirmed.
// Called from the cron worker under the distributed lock; each order is moved
// independently so one failure does not block the rest.
func (s *service) ConfirmBatchedOrders(ctx context.Context, actor Actor) (int, error) {
	pending, err := s.repo.ListBatchedByStatus(ctx, []enums.OrderStatus{enums.OrderStatusPending})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list batched orders")
	}

	confirmed := 0
	for _, order := range pending {
		_, err := s.UpdateStatus(ctx, UpdateStatusInput{
			OrderID: order.ID,
			Status:  enums.OrderStatusConfirmed,
			Actor:   actor,
		})
		if err != nil {
			if s.logg != nil {
				fields := map[string]any{"order_id": order.ID, "order_number": order.OrderNumber, "error": err.Error()}
				s.logg.Warn(s.logg.WithFields(ctx, fields), "batch confirmation failed for order")
			}
			continue
		}
		confirmed++
	}
	return confirmed, nil
}

func recomputeTotals(order *models.Order) {
	total := decimal.Zero
	for _, line := range order.Lines {
		total = total.Add(line.Amount)
	}
	order.TotalAmount = total
	order.PaymentStatus = derivePaymentStatus(order.PaidAmount, total)
}

func derivePaymentStatus(paid, total decimal.Decimal) enums.PaymentStatus {
	switch {
	case !paid.IsPositive():
		return enums.PaymentStatusUnpaid
	case paid.GreaterThanOrEqual(total):
		return enums.PaymentStatusPaid
	default:
		return enums.PaymentStatusPartial
	}
}
