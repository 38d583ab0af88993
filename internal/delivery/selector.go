package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/fulfillment-backend/internal/distance"
	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

type companyLister interface {
	ListApproved(ctx context.Context) ([]models.DeliveryCompany, error)
}

// Selection is the company chosen for a city plus every candidate that will
// be offered the order. Selected is always Candidates[0].
type Selection struct {
	Selected   models.DeliveryCompany
	Candidates []models.DeliveryCompany
	// Covered is false when no approved company lists the city and the
	// oldest approved company was used instead.
	Covered bool
}

// CandidateIDs lists candidate ids in offer order.
func (s Selection) CandidateIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		out = append(out, c.ID)
	}
	return out
}

// Selector picks delivery companies and depots.
type Selector struct {
	companies companyLister
}

// NewSelector wires the selector.
func NewSelector(companies companyLister) (*Selector, error) {
	if companies == nil {
		return nil, fmt.Errorf("company lister required")
	}
	return &Selector{companies: companies}, nil
}

// SelectCompany returns approved companies whose coverage areas name the city
// (case-insensitive), oldest first. Without a match the oldest approved
// company is the sole candidate. No approved company at all is a validation error.
func (s *Selector) SelectCompany(ctx context.Context, city string) (*Selection, error) {
	approved, err := s.companies.ListApproved(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery companies")
	}
	if len(approved) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no delivery company available").
			WithDetails(map[string]any{"city": city})
	}

	want := strings.TrimSpace(city)
	var covering []models.DeliveryCompany
	for _, company := range approved {
		if covers(company, want) {
			covering = append(covering, company)
		}
	}
	if len(covering) == 0 {
		return &Selection{Selected: approved[0], Candidates: approved[:1]}, nil
	}
	return &Selection{Selected: covering[0], Candidates: covering, Covered: true}, nil
}

func covers(company models.DeliveryCompany, city string) bool {
	if city == "" {
		return false
	}
	for _, area := range company.CoverageAreas {
		if strings.EqualFold(strings.TrimSpace(area), city) {
			return true
		}
	}
	return false
}

// SelectDepot returns the company location nearest to near by great-circle
// distance, first listed on ties. Without locations, or without near, the
// fallback point is returned.
func SelectDepot(company models.DeliveryCompany, near *distance.Point, fallback *distance.Point) *distance.Point {
	if near == nil || len(company.Locations) == 0 {
		return fallback
	}
	var best *distance.Point
	bestKm := 0.0
	for _, loc := range company.Locations {
		p := distance.Point{Lat: loc.Latitude, Lng: loc.Longitude}
		km := distance.Haversine(*near, p)
		if best == nil || km < bestKm {
			best, bestKm = &p, km
		}
	}
	return best
}
