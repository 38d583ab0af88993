package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
	"github.com/angelmondragon/fulfillment-backend/pkg/logger"
	"github.com/angelmondragon/fulfillment-backend/pkg/maps"
)

// NewAddress is an address typed at checkout time.
type NewAddress struct {
	AddressLine1 string   `json:"address_line1" validate:"required"`
	AddressLine2 *string  `json:"address_line2,omitempty"`
	City         string   `json:"city" validate:"required"`
	State        *string  `json:"state,omitempty"`
	PostalCode   *string  `json:"postal_code,omitempty"`
	Country      *string  `json:"country,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// Input selects either a saved address or a new one.
type Input struct {
	AddressID *uuid.UUID
	New       *NewAddress
}

// Resolved is an address with coordinates. When IsNew is true the row has
// not been written yet and the checkout transaction must insert it.
type Resolved struct {
	Address models.Address
	IsNew   bool
}

type geocoder interface {
	GeocodeAddress(ctx context.Context, address string) (*maps.Geocode, error)
}

// Service turns checkout address input into a located address.
type Service interface {
	Resolve(ctx context.Context, userID uuid.UUID, input Input) (*Resolved, error)
}

type service struct {
	repo *Repository
	geo  geocoder
	logg *logger.Logger
}

// NewService wires the resolver. geo may be nil when no maps key is
// configured; addresses must then carry coordinates.
func NewService(repo *Repository, geo geocoder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, geo: geo, logg: logg}, nil
}

func (s *service) Resolve(ctx context.Context, userID uuid.UUID, input Input) (*Resolved, error) {
	switch {
	case input.AddressID != nil:
		return s.resolveSaved(ctx, userID, *input.AddressID)
	case input.New != nil:
		return s.resolveNew(ctx, userID, *input.New)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address or address_id is required")
	}
}

func (s *service) resolveSaved(ctx context.Context, userID, id uuid.UUID) (*Resolved, error) {
	addr, err := s.repo.FindOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if !addr.HasLocation() {
		// Saved rows are never rewritten; the coordinates only feed this quote.
		lat, lng, err := s.locate(ctx, formatAddress(addr.AddressLine1, addr.City, addr.Country))
		if err != nil {
			return nil, err
		}
		addr.Latitude, addr.Longitude = &lat, &lng
	}
	return &Resolved{Address: *addr}, nil
}

func (s *service) resolveNew(ctx context.Context, userID uuid.UUID, in NewAddress) (*Resolved, error) {
	if strings.TrimSpace(in.AddressLine1) == "" || strings.TrimSpace(in.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address_line1 and city are required")
	}
	addr := models.Address{
		ID:           uuid.New(),
		UserID:       userID,
		AddressLine1: strings.TrimSpace(in.AddressLine1),
		AddressLine2: in.AddressLine2,
		City:         strings.TrimSpace(in.City),
		State:        in.State,
		PostalCode:   in.PostalCode,
		Country:      in.Country,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
	}
	if !addr.HasLocation() {
		lat, lng, err := s.locate(ctx, formatAddress(addr.AddressLine1, addr.City, addr.Country))
		if err != nil {
			return nil, err
		}
		addr.Latitude, addr.Longitude = &lat, &lng
	}
	return &Resolved{Address: addr, IsNew: true}, nil
}

// locate geocodes text. Any failure is a validation error because routing
// has no fallback without the customer's coordinates.
func (s *service) locate(ctx context.Context, text string) (float64, float64, error) {
	if s.geo == nil {
		return 0, 0, pkgerrors.New(pkgerrors.CodeValidation, "address coordinates are required")
	}
	geo, err := s.geo.GeocodeAddress(ctx, text)
	if err != nil {
		logCtx := s.logg.WithField(ctx, "address", text)
		s.logg.Warn(logCtx, "address.geocode_failed")
		return 0, 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "address could not be located")
	}
	return geo.Location.Latitude, geo.Location.Longitude, nil
}

func formatAddress(line1, city string, country *string) string {
	parts := []string{line1, city}
	if country != nil && strings.TrimSpace(*country) != "" {
		parts = append(parts, strings.TrimSpace(*country))
	}
	return strings.Join(parts, ", ")
}
