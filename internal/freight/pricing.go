package freight

import "strings"

// VehicleClass names a vehicle type from the rate table.
type VehicleClass string

const (
	Sprinter       VehicleClass = "Sprinter"
	PlanenSprinter VehicleClass = "Planen-Sprinter"
	KleinLKW       VehicleClass = "Klein-LKW"
	LKW7_5t        VehicleClass = "LKW 7,5t"
	Tautliner      VehicleClass = "Tautliner"
	Mega           VehicleClass = "Mega"
	Jumbo          VehicleClass = "Jumbo"
)

const (
	// BaseRate covers every trip up to BaseDistanceKm.
	BaseRate       = 65.00
	BaseDistanceKm = 40.0
	// FallbackRatePerKm applies to vehicle classes missing from the rate table.
	FallbackRatePerKm = 0.50
)

var ratePerKm = map[VehicleClass]float64{
	Sprinter:       0.35,
	PlanenSprinter: 0.40,
	KleinLKW:       0.50,
	LKW7_5t:        0.70,
	Tautliner:      1.10,
	Mega:           1.15,
	Jumbo:          1.25,
}

func (v VehicleClass) String() string {
	return string(v)
}

// VehicleClasses lists the rate table in display order.
func VehicleClasses() []VehicleClass {
	return []VehicleClass{Sprinter, PlanenSprinter, KleinLKW, LKW7_5t, Tautliner, Mega, Jumbo}
}

// RatePerKm returns the per-kilometer rate and whether the class is known.
func RatePerKm(class VehicleClass) (float64, bool) {
	rate, ok := ratePerKm[class]
	if !ok {
		return FallbackRatePerKm, false
	}
	return rate, true
}

// ParseVehicleClass matches a class name case-insensitively. Unknown names
// are returned unchanged and priced with the fallback rate.
func ParseVehicleClass(s string) VehicleClass {
	s = strings.TrimSpace(s)
	for _, c := range VehicleClasses() {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return VehicleClass(s)
}

// Price returns the flat base rate up to BaseDistanceKm and adds the
// per-kilometer rate for every kilometer beyond it. Rounded to 2 decimals.
func Price(distanceKm float64, class VehicleClass) float64 {
	if distanceKm <= BaseDistanceKm {
		return round(BaseRate, 2)
	}
	rate, _ := RatePerKm(class)
	return round(BaseRate+(distanceKm-BaseDistanceKm)*rate, 2)
}
