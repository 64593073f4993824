package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/paklift/service-ride/internal/domain/geo"
	"github.com/paklift/service-ride/internal/domain/ride"
	"github.com/paklift/service-ride/internal/domain/route"
)

// LatLng is the short coordinate form accepted by route endpoints.
type LatLng struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// PlaceInput names a location, optionally with known coordinates.
type PlaceInput struct {
	Name        string          `json:"name"`
	Coordinates *geo.Coordinate `json:"coordinates"`
}

// CurrentLocationDTO is the live-position snapshot of a ride.
type CurrentLocationDTO struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// RideDTO is the response representation of a ride.
type RideDTO struct {
	ID               uuid.UUID           `json:"id"`
	RouteID          *uuid.UUID          `json:"routeId,omitempty"`
	From             geo.Place           `json:"from"`
	To               geo.Place           `json:"to"`
	RouteCoordinates []geo.Coordinate    `json:"routeCoordinates"`
	CurrentLocation  *CurrentLocationDTO `json:"currentLocation"`
	TotalFare        float64             `json:"totalFare"`
	FarePerSeat      float64             `json:"farePerSeat"`
	Seats            int                 `json:"seats"`
	AvailableSeats   int                 `json:"availableSeats"`
	Distance         string              `json:"distance"`
	Duration         string              `json:"duration"`
	Status           string              `json:"status"`
	IsActive         bool                `json:"isActive"`
	Passengers       []uuid.UUID         `json:"passengers"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	EndedAt          *time.Time          `json:"endedAt,omitempty"`
}

// EndRideDTO is returned when a ride is ended.
type EndRideDTO struct {
	Status   string    `json:"status"`
	IsActive bool      `json:"isActive"`
	EndedAt  time.Time `json:"endedAt"`
}

// LocationSummaryDTO answers "where is this ride now".
type LocationSummaryDTO struct {
	Status         string          `json:"status"`
	IsActive       bool            `json:"isActive"`
	From           geo.Place       `json:"from"`
	To             geo.Place       `json:"to"`
	Location       *geo.Coordinate `json:"location"`
	LastUpdated    *time.Time      `json:"lastUpdated"`
	RideDurationMs *int64          `json:"rideDurationMs"`
}

// RouteDTO is the response representation of a published route.
type RouteDTO struct {
	ID               uuid.UUID        `json:"id"`
	DriverID         uuid.UUID        `json:"driverId"`
	VehicleID        uuid.UUID        `json:"vehicleId"`
	From             geo.Place        `json:"from"`
	To               geo.Place        `json:"to"`
	PlaceName        string           `json:"placeName,omitempty"`
	RouteCoordinates []geo.Coordinate `json:"routeCoordinates"`
	Distance         string           `json:"distance"`
	Duration         string           `json:"duration,omitempty"`
	Fare             float64          `json:"fare"`
	Seats            int              `json:"seats"`
	Status           string           `json:"status"`
	CreatedAt        time.Time        `json:"createdAt"`
	// DistanceKm is set by proximity searches only.
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// MatchResult is the outcome of a destination match. No match is not an error.
type MatchResult struct {
	Match         bool       `json:"match"`
	Message       string     `json:"message"`
	MatchedRoutes []RouteDTO `json:"matchedRoutes"`
}

func toRideDTO(r *ride.Ride) RideDTO {
	dto := RideDTO{
		ID:               r.ID(),
		RouteID:          r.RouteID(),
		From:             r.Origin(),
		To:               r.Destination(),
		RouteCoordinates: nonNilCoords(r.PathPoints()),
		TotalFare:        r.TotalFare(),
		FarePerSeat:      r.FarePerSeat(),
		Seats:            r.TotalSeats(),
		AvailableSeats:   r.AvailableSeats(),
		Distance:         r.Distance(),
		Duration:         r.Duration(),
		Status:           r.Status().String(),
		IsActive:         r.IsActive(),
		Passengers:       append([]uuid.UUID{}, r.Passengers()...),
		CreatedAt:        r.CreatedAt(),
		UpdatedAt:        r.UpdatedAt(),
		EndedAt:          r.EndedAt(),
	}
	if loc := r.CurrentLocation(); loc != nil {
		dto.CurrentLocation = toCurrentLocationDTO(loc)
	}
	return dto
}

func toCurrentLocationDTO(loc *ride.Location) *CurrentLocationDTO {
	return &CurrentLocationDTO{
		Latitude:  loc.Coordinates.Latitude,
		Longitude: loc.Coordinates.Longitude,
		Timestamp: loc.Timestamp,
	}
}

func toRouteDTO(r *route.Route) RouteDTO {
	return RouteDTO{
		ID:               r.ID(),
		DriverID:         r.DriverID(),
		VehicleID:        r.VehicleID(),
		From:             r.Origin(),
		To:               r.Destination(),
		PlaceName:        r.PlaceName(),
		RouteCoordinates: nonNilCoords(r.PathPoints()),
		Distance:         r.Distance(),
		Duration:         r.Duration(),
		Fare:             r.Fare(),
		Seats:            r.Seats(),
		Status:           string(r.Status()),
		CreatedAt:        r.CreatedAt(),
	}
}

func nonNilCoords(points []geo.Coordinate) []geo.Coordinate {
	if points == nil {
		return []geo.Coordinate{}
	}
	return points
}
