// Package geo holds the coordinate value objects shared by routes and rides, and
// the contract of the geocoding collaborator.
package geo

import (
	"context"
	"math"
	"strings"

	"github.com/paklift/service-ride/internal/platform/apperr"
)

const earthRadiusKm = 6371.0

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges, naming the offending field.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return apperr.NewFieldError("latitude", c.Latitude, "must be between -90 and 90")
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return apperr.NewFieldError("longitude", c.Longitude, "must be between -180 and 180")
	}
	return nil
}

// DistanceKm returns the great-circle distance to other.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	dLat := degreesToRadians(other.Latitude - c.Latitude)
	dLng := degreesToRadians(other.Longitude - c.Longitude)

	lat1 := degreesToRadians(c.Latitude)
	lat2 := degreesToRadians(other.Latitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lng box enclosing a circle of radiusKm around c.
func (c Coordinate) BoundingBox(radiusKm float64) (lo, hi Coordinate) {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	cosLat := math.Cos(degreesToRadians(c.Latitude))
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = math.Min(180, dLat/cosLat)
	}
	lo = Coordinate{Latitude: math.Max(-90, c.Latitude-dLat), Longitude: math.Max(-180, c.Longitude-dLng)}
	hi = Coordinate{Latitude: math.Min(90, c.Latitude+dLat), Longitude: math.Min(180, c.Longitude+dLng)}
	return lo, hi
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Place is a named location whose coordinates may not be known yet.
type Place struct {
	Name        string      `json:"name"`
	Coordinates *Coordinate `json:"coordinates,omitempty"`
}

// NewPlace trims the name and validates coordinates when present.
func NewPlace(name string, coords *Coordinate) (Place, error) {
	p := Place{Name: strings.TrimSpace(name), Coordinates: coords}
	if coords != nil {
		if err := coords.Validate(); err != nil {
			return Place{}, err
		}
	}
	return p, nil
}

// Resolved reports whether the place carries coordinates.
func (p Place) Resolved() bool { return p.Coordinates != nil }

// Geocoder resolves a place name to coordinates. Implementations return an
// apperr.KindAddressNotFound error when the lookup has no result.
type Geocoder interface {
	Resolve(ctx context.Context, placeName string) (Coordinate, error)
}
