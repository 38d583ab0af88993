package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/fulfillment-backend/pkg/config"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

var (
	ErrInvalidSubject = errors.New("token subject is not a user id")
	ErrInvalidRole    = errors.New("token role is not recognised")
)

// Verifier checks signature, issuer and expiry of bearer tokens.
type Verifier struct {
	key    []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("jwt issuer is required")
	}
	return &Verifier{
		key: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify returns the caller named by token.
func (v *Verifier) Verify(token string) (Principal, error) {
	var claims Claims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keyFunc); err != nil {
		return Principal{}, fmt.Errorf("verify token: %w", err)
	}
	return claims.principal()
}

func (v *Verifier) keyFunc(*jwt.Token) (any, error) {
	return v.key, nil
}
