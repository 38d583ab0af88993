// Package auth verifies the HS256 access tokens minted by the identity
// service and turns them into a Principal.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// Claims is the token body. The user id travels in the standard sub claim.
type Claims struct {
	Role enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) principal() (Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil || userID == uuid.Nil {
		return Principal{}, ErrInvalidSubject
	}
	if !c.Role.IsValid() {
		return Principal{}, ErrInvalidRole
	}
	return Principal{UserID: userID, Role: c.Role}, nil
}
