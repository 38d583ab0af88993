package routing

import (
	"context"
	"math"

	"github.com/angelmondragon/fulfillment-backend/internal/distance"
)

// tieTolerance treats two candidate distances as equal.
const tieTolerance = 1e-9

// Stop is a named place on a route. Location may be nil when unresolved.
type Stop struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Location *distance.Point `json:"location"`
}

// Leg is one hop between consecutive stops.
type Leg struct {
	From        Stop            `json:"from"`
	To          Stop            `json:"to"`
	DistanceKm  float64         `json:"distance_km"`
	DurationMin *float64        `json:"duration_min"`
	Source      distance.Source `json:"source"`
}

// Route is the visiting order produced by Plan.
type Route struct {
	OrderedStops     []Stop   `json:"ordered_stops"`
	Skipped          []Stop   `json:"skipped,omitempty"`
	Legs             []Leg    `json:"legs"`
	TotalDistanceKm  float64  `json:"total_distance_km"`
	TotalDurationMin *float64 `json:"total_duration_min"`
}

// Planner sequences pickups with a greedy nearest-neighbour walk. The result
// is an approximation, kept on purpose so preview and checkout quotes agree.
type Planner struct {
	provider distance.Provider
}

// NewPlanner builds a planner over the given distance provider.
func NewPlanner(provider distance.Provider) *Planner {
	return &Planner{provider: provider}
}

// Plan walks depot -> nearest unvisited stop -> ... -> destination.
// Stops without a location are excluded and reported in Skipped. Ties go to
// the stop that appears first in stops.
func (p *Planner) Plan(ctx context.Context, depot Stop, stops []Stop, destination Stop) Route {
	provider := distance.NewMemo(p.provider)

	remaining := make([]Stop, 0, len(stops))
	route := Route{OrderedStops: make([]Stop, 0, len(stops))}
	for _, stop := range stops {
		if stop.Location == nil {
			route.Skipped = append(route.Skipped, stop)
			continue
		}
		remaining = append(remaining, stop)
	}

	current := depot
	for len(remaining) > 0 {
		bestIdx := -1
		var best distance.Result
		for i, candidate := range remaining {
			res := provider.Distance(ctx, current.Location, candidate.Location)
			if !res.Available() {
				continue
			}
			if bestIdx == -1 || res.DistanceKm < best.DistanceKm-tieTolerance {
				bestIdx = i
				best = res
			}
		}
		if bestIdx == -1 {
			// Nothing measurable from here; keep input order.
			bestIdx = 0
			best = distance.Unavailable
		}

		next := remaining[bestIdx]
		route.Legs = append(route.Legs, newLeg(current, next, best))
		route.OrderedStops = append(route.OrderedStops, next)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		current = next
	}

	final := provider.Distance(ctx, current.Location, destination.Location)
	route.Legs = append(route.Legs, newLeg(current, destination, final))

	route.TotalDistanceKm, route.TotalDurationMin = totals(route.Legs)
	return route
}

func newLeg(from, to Stop, res distance.Result) Leg {
	leg := Leg{From: from, To: to, Source: res.Source}
	if res.Available() {
		leg.DistanceKm = res.DistanceKm
		leg.DurationMin = res.DurationMin
	}
	return leg
}

func totals(legs []Leg) (float64, *float64) {
	var km, minutes float64
	durationKnown := true
	for _, leg := range legs {
		km += leg.DistanceKm
		if leg.DurationMin == nil {
			durationKnown = false
			continue
		}
		minutes += *leg.DurationMin
	}
	km = math.Round(km*100) / 100
	if !durationKnown {
		return km, nil
	}
	minutes = math.Round(minutes)
	return km, &minutes
}
