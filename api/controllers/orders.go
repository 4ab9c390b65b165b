package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/api/responses"
	"github.com/mandibook/mandibook-backend/api/validators"
	internalorders "github.com/mandibook/mandibook-backend/internal/orders"
	"github.com/mandibook/mandibook-backend/pkg/db/models"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
	"github.com/mandibook/mandibook-backend/pkg/logger"
	"github.com/mandibook/mandibook-backend/pkg/pagination"
)

type createOrderLineRequest struct {
	ProductID string           `json:"product_id" validate:"required,uuid"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Rate      *decimal.Decimal `json:"rate,omitempty"`
}

type createOrderRequest struct {
	CustomerID     string                   `json:"customer_id" validate:"required,uuid"`
	Lines          []createOrderLineRequest `json:"lines" validate:"required,min=1,dive"`
	IdempotencyKey *string                  `json:"idempotency_key,omitempty"`
	Notes          *string                  `json:"notes,omitempty"`
}

type createOrderResponse struct {
	Order      *models.Order `json:"order"`
	Idempotent bool          `json:"idempotent"`
}

// CreateOrder books a new order, resolving each line's rate from the
// customer's pricing configuration. Replays carrying a previously used
// idempotency key return the original order with a 200.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		input := internalorders.CreateOrderInput{
			CustomerID: customerID,
			Notes:      req.Notes,
			Actor:      actor,
		}
		if req.IdempotencyKey != nil {
			key := validators.SanitizeString(*req.IdempotencyKey, 128)
			if key != "" {
				input.IdempotencyKey = &key
			}
		}
		for _, line := range req.Lines {
			productID, err := uuid.Parse(line.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			input.Lines = append(input.Lines, internalorders.CreateOrderLineInput{
				ProductID: productID,
				Quantity:  line.Quantity,
				Rate:      line.Rate,
			})
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Idempotent {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, createOrderResponse{
			Order:      result.Order,
			Idempotent: result.Idempotent,
		})
	}
}

// GetOrder returns one order with its lines.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ListOrders returns a customer's orders, newest first.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawCustomer := strings.TrimSpace(r.URL.Query().Get("customer_id"))
		if rawCustomer == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required"))
			return
		}
		customerID, err := uuid.Parse(rawCustomer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListByCustomer(r.Context(), customerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus moves an order through its lifecycle.
func UpdateOrderStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), internalorders.UpdateStatusInput{
			OrderID: orderID,
			Status:  status,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CancelOrder cancels an order. Admin only.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type lineRateRequest struct {
	LineID string          `json:"line_id" validate:"required,uuid"`
	Rate   decimal.Decimal `json:"rate"`
}

type updateOrderPricesRequest struct {
	Lines  []lineRateRequest `json:"lines" validate:"required,min=1,dive"`
	Reason *string           `json:"reason,omitempty"`
}

// UpdateOrderPrices edits line rates on an open order. Quantities are not
// touched here; every change lands in the order's audit log.
func UpdateOrderPrices(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateOrderPricesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.UpdatePricesInput{
			OrderID: orderID,
			Reason:  req.Reason,
			Actor:   actor,
		}
		for _, line := range req.Lines {
			lineID, err := uuid.Parse(line.LineID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id"))
				return
			}
			input.Lines = append(input.Lines, internalorders.LineRateInput{
				LineID: lineID,
				Rate:   line.Rate,
			})
		}

		order, err := svc.UpdatePrices(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type recordOrderPaymentRequest struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
}

// RecordOrderPayment sets the absolute amount paid against an order and
// rederives its payment status.
func RecordOrderPayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordOrderPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.RecordPayment(r.Context(), internalorders.RecordOrderPaymentInput{
			OrderID:    orderID,
			PaidAmount: req.PaidAmount,
			Actor:      actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type reducePackedQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   *string         `json:"reason,omitempty"`
}

// ReducePackedQuantity corrects a short-packed line while the order is
// confirmed. Quantities only go down.
func ReducePackedQuantity(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParsePathUUID(chi.URLParam(r, "lineId"), "line id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reducePackedQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ReducePackedQuantity(r.Context(), internalorders.ReducePackedQuantityInput{
			OrderID:  orderID,
			LineID:   lineID,
			Quantity: req.Quantity,
			Reason:   req.Reason,
			Actor:    actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type packingRequest struct {
	Completed bool `json:"completed"`
}

// SetPacking flags packing progress on an order.
func SetPacking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req packingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetPacking(r.Context(), internalorders.PackingInput{
			OrderID:   orderID,
			Completed: req.Completed,
			Actor:     actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type assignBatchRequest struct {
	BatchID string `json:"batch_id" validate:"required,uuid"`
}

// AssignBatch attaches an order to a fulfillment batch so the scheduler can
// confirm it in bulk.
func AssignBatch(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := uuid.Parse(req.BatchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch id"))
			return
		}

		order, err := svc.AssignBatch(r.Context(), internalorders.AssignBatchInput{
			OrderID: orderID,
			BatchID: batchID,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdvanceBatch pushes a whole batch one step forward. Per-order failures
// come back in the payload instead of failing the request.
func AdvanceBatch(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batchID, err := validators.ParsePathUUID(chi.URLParam(r, "batchId"), "batch id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdvanceBatch(r.Context(), batchID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
