package ride

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FareStrategy estimates the total fare of a ride when the driver supplies none.
type FareStrategy interface {
	// Estimate returns the total fare for the given parameters.
	Estimate(params FareParams) (float64, error)
}

// FareParams holds the inputs for fare estimation.
type FareParams struct {
	DistanceKm float64
	Seats      int
}

// FuelCostFareStrategy prices a ride by distance at a flat per-km rate.
type FuelCostFareStrategy struct {
	perKm float64
}

// NewFuelCostFareStrategy creates a new FuelCostFareStrategy.
func NewFuelCostFareStrategy(perKm float64) *FuelCostFareStrategy {
	return &FuelCostFareStrategy{perKm: perKm}
}

// Estimate computes the total fare as distance × rate, rounded to a whole
// currency unit. Seats are validated but do not scale the total; the per-seat
// price is Ride.FarePerSeat.
func (s *FuelCostFareStrategy) Estimate(params FareParams) (float64, error) {
	if params.DistanceKm < 0 {
		return 0, fmt.Errorf("distance cannot be negative")
	}
	if params.Seats < 1 {
		return 0, fmt.Errorf("seats must be at least 1")
	}
	return math.Round(params.DistanceKm * s.perKm), nil
}

// ParseDistanceKm extracts kilometres from a display string such as "12.5 km",
// "1,204 km" or "850 m".
func ParseDistanceKm(distance string) (float64, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(distance)))
	if len(fields) == 0 {
		return 0, false
	}

	number := strings.ReplaceAll(fields[0], ",", "")
	unit := ""
	if len(fields) > 1 {
		unit = fields[1]
	} else if trimmed := strings.TrimRight(number, "abcdefghijklmnopqrstuvwxyz"); trimmed != number {
		unit = number[len(trimmed):]
		number = trimmed
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil || value < 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}

	switch unit {
	case "", "km", "kms", "kilometer", "kilometers", "kilometre", "kilometres":
		return value, true
	case "m", "meter", "meters", "metre", "metres":
		return value / 1000, true
	case "mi", "mile", "miles":
		return value * 1.609344, true
	default:
		return 0, false
	}
}
