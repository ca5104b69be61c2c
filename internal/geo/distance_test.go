package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	coords map[string]Coordinate
	errs   map[string]error
	calls  []string
}

func (f *fakeResolver) Resolve(ctx context.Context, place string) (Coordinate, error) {
	f.calls = append(f.calls, place)
	if err, ok := f.errs[place]; ok {
		return Coordinate{}, err
	}
	return f.coords[place], nil
}

func TestHaversine(t *testing.T) {
	// One degree of longitude at the equator.
	d := Haversine(Coordinate{0, 0}, Coordinate{0, 1})
	assert.InDelta(t, 111.19, d, 0.01)

	assert.Zero(t, Haversine(Coordinate{52.52, 13.405}, Coordinate{52.52, 13.405}))
}

func TestRoadDistance(t *testing.T) {
	berlin := Coordinate{Lat: 52.5200, Lon: 13.4050}
	hamburg := Coordinate{Lat: 53.5511, Lon: 9.9937}

	straight := Haversine(berlin, hamburg)
	assert.InDelta(t, 255.0, straight, 2.0)

	road := RoadDistance(berlin, hamburg)
	assert.InDelta(t, straight*RoadFactor, road, 0.05)
	assert.Equal(t, road, float64(int(road*10+0.5))/10)
}

func TestEstimate_Sequential(t *testing.T) {
	f := &fakeResolver{coords: map[string]Coordinate{
		"Berlin":  {Lat: 52.5200, Lon: 13.4050},
		"Hamburg": {Lat: 53.5511, Lon: 9.9937},
	}}

	km, err := NewEstimator(f).Estimate(context.Background(), "Berlin", "Hamburg")
	require.NoError(t, err)
	assert.Equal(t, []string{"Berlin", "Hamburg"}, f.calls)
	assert.InDelta(t, 331.5, km, 3.0)
}

func TestEstimate_StartFailureShortCircuits(t *testing.T) {
	f := &fakeResolver{errs: map[string]error{"Atlantis": ErrPlaceNotFound}}

	_, err := NewEstimator(f).Estimate(context.Background(), "Atlantis", "Hamburg")
	require.ErrorIs(t, err, ErrRouteFailed)
	require.ErrorIs(t, err, ErrPlaceNotFound)
	assert.Equal(t, []string{"Atlantis"}, f.calls)
}

func TestEstimate_DestinationFailure(t *testing.T) {
	netErr := errors.Join(ErrNetwork, errors.New("timeout"))
	f := &fakeResolver{
		coords: map[string]Coordinate{"Berlin": {Lat: 52.52, Lon: 13.405}},
		errs:   map[string]error{"Hamburg": netErr},
	}

	_, err := NewEstimator(f).Estimate(context.Background(), "Berlin", "Hamburg")
	require.ErrorIs(t, err, ErrRouteFailed)
	require.ErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "route calculation failed")
}
