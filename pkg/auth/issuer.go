package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
)

// Issuer mints tokens the Verifier accepts. Production tokens come from the
// identity service; this backs tests and local tooling.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	if cfg.Secret == "" || cfg.Issuer == "" {
		return nil, errors.New("jwt secret and issuer are required")
	}
	if cfg.ExpirationMinutes <= 0 {
		return nil, errors.New("jwt expiration minutes must be positive")
	}
	return &Issuer{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
	}, nil
}

// Issue signs a token for p valid from now.
func (i *Issuer) Issue(p Principal, now time.Time) (string, error) {
	if p.UserID == uuid.Nil {
		return "", ErrInvalidSubject
	}
	if !p.Role.IsValid() {
		return "", ErrInvalidRole
	}
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
