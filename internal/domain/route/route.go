package route

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paklift/service-ride/internal/domain/geo"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

// RouteStatus marks whether a published route is offered to customers.
type RouteStatus string

const (
	StatusActive   RouteStatus = "active"
	StatusInactive RouteStatus = "inactive"
)

// ParseRouteStatus converts a string to a RouteStatus. Empty means active.
func ParseRouteStatus(s string) (RouteStatus, error) {
	switch RouteStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	default:
		return "", fmt.Errorf("invalid route status: %s", s)
	}
}

// Route is a driver-published journey that customers can match against. Routes are
// immutable once published.
type Route struct {
	id          uuid.UUID
	driverID    uuid.UUID
	vehicleID   uuid.UUID
	origin      geo.Place
	destination geo.Place
	pathPoints  []geo.Coordinate
	placeName   string
	distance    string
	duration    string
	fare        float64
	seats       int
	status      RouteStatus
	createdAt   time.Time
}

// NewRoute creates a Route. The destination must carry coordinates.
func NewRoute(
	driverID uuid.UUID,
	vehicleID uuid.UUID,
	origin geo.Place,
	destination geo.Place,
	pathPoints []geo.Coordinate,
	placeName string,
	distance string,
	duration string,
	fare float64,
	seats int,
	status RouteStatus,
) (*Route, error) {
	if driverID == uuid.Nil {
		return nil, apperr.NewValidationError("driver ID is required")
	}
	if vehicleID == uuid.Nil {
		return nil, apperr.NewValidationError("vehicle ID is required")
	}
	if origin.Name == "" {
		return nil, apperr.NewValidationError("origin name is required")
	}
	if destination.Name == "" {
		return nil, apperr.NewValidationError("destination name is required")
	}
	if !destination.Resolved() {
		return nil, apperr.NewValidationError("destination coordinates are required")
	}
	if err := destination.Coordinates.Validate(); err != nil {
		return nil, err
	}
	if origin.Resolved() {
		if err := origin.Coordinates.Validate(); err != nil {
			return nil, err
		}
	}
	for _, p := range pathPoints {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	if seats < 1 {
		return nil, apperr.NewFieldError("seats", seats, "must be at least 1")
	}
	if fare < 0 {
		return nil, apperr.NewFieldError("fare", fare, "must not be negative")
	}
	if status == "" {
		status = StatusActive
	}

	return &Route{
		id:          uuid.New(),
		driverID:    driverID,
		vehicleID:   vehicleID,
		origin:      origin,
		destination: destination,
		pathPoints:  slices.Clone(pathPoints),
		placeName:   strings.TrimSpace(placeName),
		distance:    distance,
		duration:    duration,
		fare:        fare,
		seats:       seats,
		status:      status,
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstructRoute rebuilds a Route from persistence data (no validation).
func ReconstructRoute(
	id, driverID, vehicleID uuid.UUID,
	origin, destination geo.Place,
	pathPoints []geo.Coordinate,
	placeName, distance, duration string,
	fare float64,
	seats int,
	status RouteStatus,
	createdAt time.Time,
) *Route {
	return &Route{
		id:          id,
		driverID:    driverID,
		vehicleID:   vehicleID,
		origin:      origin,
		destination: destination,
		pathPoints:  pathPoints,
		placeName:   placeName,
		distance:    distance,
		duration:    duration,
		fare:        fare,
		seats:       seats,
		status:      status,
		createdAt:   createdAt,
	}
}

// --- Getters ---

// ID returns the route identifier.
func (r *Route) ID() uuid.UUID { return r.id }

// DriverID returns the driver who published the route.
func (r *Route) DriverID() uuid.UUID { return r.driverID }

// VehicleID returns the vehicle the route is driven with.
func (r *Route) VehicleID() uuid.UUID { return r.vehicleID }

// Origin returns the starting place.
func (r *Route) Origin() geo.Place { return r.origin }

// Destination returns the end place.
func (r *Route) Destination() geo.Place { return r.destination }

// PathPoints returns the ordered polyline between origin and destination.
func (r *Route) PathPoints() []geo.Coordinate { return r.pathPoints }

// PlaceName returns the free-text destination alias used for search.
func (r *Route) PlaceName() string { return r.placeName }

// Distance returns the human-readable trip distance.
func (r *Route) Distance() string { return r.distance }

// Duration returns the human-readable trip duration.
func (r *Route) Duration() string { return r.duration }

// Fare returns the total fare for the trip.
func (r *Route) Fare() float64 { return r.fare }

// Seats returns the seats offered on the route.
func (r *Route) Seats() int { return r.seats }

// Status returns the publication status.
func (r *Route) Status() RouteStatus { return r.status }

// CreatedAt returns when the route was published.
func (r *Route) CreatedAt() time.Time { return r.createdAt }

// DestinationCoordinates returns the indexed destination point.
func (r *Route) DestinationCoordinates() geo.Coordinate { return *r.destination.Coordinates }

