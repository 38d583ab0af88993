package routing

import (
	"context"
	"errors"

	"github.com/angelmondragon/fulfillment-backend/pkg/maps"
)

type failingMatrix struct{}

func (failingMatrix) Distance(context.Context, maps.LatLng, maps.LatLng) (*maps.DistanceResult, error) {
	return nil, errors.New("distance matrix unavailable")
}
