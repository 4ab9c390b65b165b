package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mandibook/mandibook-backend/api/middleware"
	"github.com/mandibook/mandibook-backend/internal/orders"
	"github.com/mandibook/mandibook-backend/pkg/enums"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
)

// actorFromRequest rebuilds the acting user from the auth middleware's
// context values.
func actorFromRequest(r *http.Request) (orders.Actor, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return orders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return orders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}
	return orders.Actor{UserID: userID, Role: role}, nil
}
