package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/api/responses"
	"github.com/mandibook/mandibook-backend/api/validators"
	"github.com/mandibook/mandibook-backend/internal/ledger"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
	"github.com/mandibook/mandibook-backend/pkg/logger"
	"github.com/mandibook/mandibook-backend/pkg/pagination"
)

type recordPaymentRequest struct {
	CustomerID string          `json:"customer_id" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount"`
	Date       *time.Time      `json:"date,omitempty"`
	Notes      *string         `json:"notes,omitempty"`
}

// RecordLedgerPayment books money received from a customer and returns the
// entry with the balances around it.
func RecordLedgerPayment(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		input := ledger.PaymentInput{
			CustomerID: customerID,
			Amount:     req.Amount,
			Notes:      req.Notes,
			ActorID:    actor.UserID,
			ActorRole:  actor.Role,
		}
		if req.Date != nil {
			input.Date = *req.Date
		}

		result, err := svc.RecordPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type recordAdjustmentRequest struct {
	CustomerID  string          `json:"customer_id" validate:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"required"`
	Date        *time.Time      `json:"date,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

// RecordLedgerAdjustment applies a signed manual correction to a customer's
// balance. Admin only; the service enforces the role again.
func RecordLedgerAdjustment(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req recordAdjustmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		input := ledger.AdjustmentInput{
			CustomerID:  customerID,
			Amount:      req.Amount,
			Description: req.Description,
			Notes:       req.Notes,
			ActorID:     actor.UserID,
			ActorRole:   actor.Role,
		}
		if req.Date != nil {
			input.Date = *req.Date
		}

		result, err := svc.RecordAdjustment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// LedgerStatement reconstructs one month of account activity for a customer.
func LedgerStatement(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParsePathUUID(chi.URLParam(r, "customerId"), "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		month, err := validators.ParseQueryInt(r, "month", 0, 1, 12)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if month == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "month is required"))
			return
		}
		year, err := validators.ParseQueryInt(r, "year", 0, 2000, 2200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if year == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "year is required"))
			return
		}

		statement, err := svc.Statement(r.Context(), customerID, time.Month(month), year)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statement)
	}
}

// LedgerHistory pages through a customer's ledger entries, newest first.
func LedgerHistory(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParsePathUUID(chi.URLParam(r, "customerId"), "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := svc.List(r.Context(), customerID, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
