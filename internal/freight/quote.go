package freight

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"lademeter/internal/logger"

	"github.com/google/uuid"
)

// NoticeNotStackable is shown when the stack factor is 0.
const NoticeNotStackable = "Stapelbarkeit 0 bedeutet: Paletten sind nicht stapelbar."

// NoticeHalfFilledRoute is shown when only one place name was entered.
const NoticeHalfFilledRoute = "Start und Ziel unvollständig: manuelle Kilometer werden verwendet."

// DistanceEstimator approximates the road distance between two places.
type DistanceEstimator interface {
	Estimate(ctx context.Context, from, to string) (float64, error)
}

// DistanceSource records where a quote's distance came from.
type DistanceSource string

const (
	DistanceGeocoded DistanceSource = "geocoded"
	DistanceManual   DistanceSource = "manual"
)

// Request is one form submission.
type Request struct {
	PalletSize  string
	Count       int
	StackFactor int
	From        string
	To          string
	// ManualKm is the raw kilometer field; empty means not given.
	ManualKm string
	Vehicle  VehicleClass
}

// Quote is the result of one computation.
type Quote struct {
	ID             string
	PalletSize     string
	Count          int
	StackFactor    int
	LoadingMeters  float64
	DistanceKm     float64
	Price          float64
	Vehicle        VehicleClass
	From           string
	To             string
	DistanceSource DistanceSource
	Notices        []string
	CreatedAt      time.Time
}

// Engine combines load meter, distance and price calculation.
type Engine struct {
	distance DistanceEstimator
	now      func() time.Time
}

func NewEngine(distance DistanceEstimator) *Engine {
	return &Engine{distance: distance, now: time.Now}
}

// Quote computes a quote. A complete place pair wins over manual
// kilometers; a failed estimate is returned as is and never replaced by
// the manual value.
func (e *Engine) Quote(ctx context.Context, req Request) (Quote, error) {
	ldm, err := ComputeLoadMeters(req.PalletSize, req.Count, req.StackFactor)
	if err != nil {
		logger.Error("Load meter calculation failed", "pallet", req.PalletSize, "error", err)
		return Quote{}, err
	}

	q := Quote{
		ID:            uuid.NewString(),
		PalletSize:    req.PalletSize,
		Count:         req.Count,
		StackFactor:   req.StackFactor,
		LoadingMeters: ldm,
		Vehicle:       req.Vehicle,
		CreatedAt:     e.now(),
	}
	if req.StackFactor == 0 {
		q.Notices = append(q.Notices, NoticeNotStackable)
	}

	from := strings.TrimSpace(req.From)
	to := strings.TrimSpace(req.To)
	manual := strings.TrimSpace(req.ManualKm)

	switch {
	case from != "" && to != "":
		km, err := e.distance.Estimate(ctx, from, to)
		if err != nil {
			logger.Error("Distance estimation failed", "from", from, "to", to, "error", err)
			return Quote{}, err
		}
		q.From, q.To = from, to
		q.DistanceKm = km
		q.DistanceSource = DistanceGeocoded
	case manual != "":
		km, err := ParseKilometers(manual)
		if err != nil {
			return Quote{}, err
		}
		if from != "" || to != "" {
			q.Notices = append(q.Notices, NoticeHalfFilledRoute)
			logger.Warn("Half-filled route, using manual kilometers", "from", from, "to", to)
		}
		q.DistanceKm = km
		q.DistanceSource = DistanceManual
	default:
		return Quote{}, ErrMissingDistanceInput
	}

	if _, known := RatePerKm(req.Vehicle); !known {
		logger.Warn("Unknown vehicle class, using fallback rate", "vehicle", req.Vehicle, "rate", FallbackRatePerKm)
	}
	q.Price = Price(q.DistanceKm, req.Vehicle)

	logger.Info("Quote computed",
		"id", q.ID,
		"loading_meters", q.LoadingMeters,
		"distance_km", q.DistanceKm,
		"source", q.DistanceSource,
		"vehicle", q.Vehicle,
		"price", q.Price)
	return q, nil
}

// ParseKilometers parses a manual distance; comma and dot decimals are accepted.
func ParseKilometers(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: kilometers %q is not a number", ErrParse, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: kilometers %q must be zero or positive", ErrParse, s)
	}
	return round(v, 1), nil
}
