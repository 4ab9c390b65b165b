package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mandibook/mandibook-backend/api/responses"
	"github.com/mandibook/mandibook-backend/api/validators"
	"github.com/mandibook/mandibook-backend/internal/customers"
	"github.com/mandibook/mandibook-backend/pkg/logger"
)

// GetCustomer returns one customer with its pricing configuration and
// current balance.
func GetCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParsePathUUID(chi.URLParam(r, "customerId"), "customer id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
