package freight

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// TrailerWidthM is the standard trailer width loading meters are normalised to.
const TrailerWidthM = 2.4

// PalletSpec holds pallet dimensions in centimeters.
type PalletSpec struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
}

// ParsePalletSpec parses "LxWxH" in centimeters. Case and whitespace are ignored.
func ParsePalletSpec(s string) (PalletSpec, error) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)

	parts := strings.Split(normalized, "x")
	if len(parts) != 3 {
		return PalletSpec{}, fmt.Errorf("%w: %q", ErrFormat, s)
	}

	var dims [3]float64
	for i, part := range parts {
		v, err := parseDimension(part)
		if err != nil {
			return PalletSpec{}, err
		}
		dims[i] = v
	}

	return PalletSpec{LengthCm: dims[0], WidthCm: dims[1], HeightCm: dims[2]}, nil
}

func parseDimension(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrParse, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("%w: %q must be a positive number", ErrParse, s)
	}
	return v, nil
}

// LoadMeters returns the trailer floor length the pallets occupy, rounded
// to 2 decimals. A stack factor n > 0 halves the result n times; height
// has no effect.
func LoadMeters(p PalletSpec, count, stackFactor int) float64 {
	lengthM := p.LengthCm / 100
	widthM := p.WidthCm / 100

	perPallet := (widthM / TrailerWidthM) * lengthM
	total := perPallet * float64(count)

	if stackFactor > 0 {
		total = total / math.Pow(2, float64(stackFactor))
	}

	return round(total, 2)
}

// ComputeLoadMeters parses the pallet size and computes loading meters.
// On failure the result is 0 and the error says why.
func ComputeLoadMeters(palletSize string, count, stackFactor int) (float64, error) {
	if count < 0 {
		return 0, fmt.Errorf("%w: pallet count %d must not be negative", ErrParse, count)
	}
	if stackFactor < 0 {
		return 0, fmt.Errorf("%w: stack factor %d must not be negative", ErrParse, stackFactor)
	}

	spec, err := ParsePalletSpec(palletSize)
	if err != nil {
		return 0, err
	}
	return LoadMeters(spec, count, stackFactor), nil
}

// ParseCount parses a non-negative whole number form field.
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrParse, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d must not be negative", ErrParse, n)
	}
	return n, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
