package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadiusKm is the mean Earth radius used by Haversine.
	EarthRadiusKm = 6371.0
	// RoadFactor approximates road distance from great-circle distance.
	// Results are the right order of magnitude, not a routed path length.
	RoadFactor = 1.3
)

// ErrRouteFailed wraps the lookup failure that stopped a distance estimate.
var ErrRouteFailed = errors.New("route calculation failed")

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Coordinate) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180.0 }
	dlat := rad(b.Lat - a.Lat)
	dlon := rad(b.Lon - a.Lon)
	h := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// RoadDistance applies RoadFactor to the Haversine distance, rounded to 1 decimal.
func RoadDistance(a, b Coordinate) float64 {
	return math.Round(Haversine(a, b)*RoadFactor*10) / 10
}

// Estimator approximates road distances between two place names.
type Estimator struct {
	resolver Resolver
}

func NewEstimator(resolver Resolver) *Estimator {
	return &Estimator{resolver: resolver}
}

// Estimate resolves from, then to, and returns the approximate road
// distance in km. A failure on from skips the second lookup.
func (e *Estimator) Estimate(ctx context.Context, from, to string) (float64, error) {
	start, err := e.resolver.Resolve(ctx, from)
	if err != nil {
		return 0, fmt.Errorf("%w: start %q: %w", ErrRouteFailed, from, err)
	}
	dest, err := e.resolver.Resolve(ctx, to)
	if err != nil {
		return 0, fmt.Errorf("%w: destination %q: %w", ErrRouteFailed, to, err)
	}
	return RoadDistance(start, dest), nil
}
