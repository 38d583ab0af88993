package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/api/middleware"
	"github.com/angelmondragon/fulfillment-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	principal, err := actor(r)
	if err != nil {
		return uuid.Nil, err
	}
	return principal.UserID, nil
}

func actor(r *http.Request) (auth.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return auth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return principal, nil
}
