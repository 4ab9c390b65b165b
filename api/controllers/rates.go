package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mandibook/mandibook-backend/api/responses"
	"github.com/mandibook/mandibook-backend/api/validators"
	"github.com/mandibook/mandibook-backend/internal/rates"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
	"github.com/mandibook/mandibook-backend/pkg/logger"
)

type rateItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Rate      decimal.Decimal `json:"rate"`
}

type recordRatesRequest struct {
	EffectiveDate *time.Time        `json:"effective_date,omitempty"`
	Items         []rateItemRequest `json:"items" validate:"required,min=1,dive"`
}

// RecordRates saves the day's market rates in bulk. Items are committed
// independently; the response lists which were saved and which failed.
func RecordRates(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordRatesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rates.RecordRatesInput{}
		if req.EffectiveDate != nil {
			input.EffectiveDate = *req.EffectiveDate
		}
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			input.Items = append(input.Items, rates.RateItem{
				ProductID: productID,
				Rate:      item.Rate,
			})
		}

		result, err := svc.Record(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CurrentRate returns the effective market rate for one product.
func CurrentRate(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := svc.Current(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rate)
	}
}

// RateHistory returns recent rates for one product, newest first.
func RateHistory(svc rates.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 30, 1, 365)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}
