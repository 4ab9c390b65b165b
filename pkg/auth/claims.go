package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mandibook/mandibook-backend/pkg/enums"
)

// AccessTokenClaims represents the typed JWT minted by the auth gateway.
// The backend only parses tokens; it never issues them.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	Name   string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}
