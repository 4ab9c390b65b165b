package controllers

import (
	"net/http"

	"github.com/mandibook/mandibook-backend/api/responses"
	"github.com/mandibook/mandibook-backend/internal/products"
	"github.com/mandibook/mandibook-backend/pkg/logger"
)

// ListProducts returns the active catalog ordered by category and name.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
