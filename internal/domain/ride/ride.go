package ride

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/paklift/service-ride/internal/domain/geo"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

// Location is the last reported position of a ride.
type Location struct {
	Coordinates geo.Coordinate `json:"coordinates"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Ride is the aggregate root for the ride ledger.
type Ride struct {
	id              uuid.UUID
	routeID         *uuid.UUID
	origin          geo.Place
	destination     geo.Place
	pathPoints      []geo.Coordinate
	currentLocation *Location

	totalFare      float64
	totalSeats     int
	availableSeats int
	distance       string
	duration       string

	status     RideStatus
	passengers []uuid.UUID

	version   int64
	createdAt time.Time
	updatedAt time.Time
	endedAt   *time.Time
}

// NewRide creates a new active Ride. Both endpoints must already be resolved.
func NewRide(
	origin geo.Place,
	destination geo.Place,
	pathPoints []geo.Coordinate,
	totalFare float64,
	totalSeats int,
	distance string,
	duration string,
	routeID *uuid.UUID,
) (*Ride, error) {
	if origin.Name == "" {
		return nil, apperr.NewValidationError("origin name is required")
	}
	if destination.Name == "" {
		return nil, apperr.NewValidationError("destination name is required")
	}
	if !origin.Resolved() || !destination.Resolved() {
		return nil, apperr.NewValidationError("origin and destination coordinates are required")
	}
	if err := origin.Coordinates.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Coordinates.Validate(); err != nil {
		return nil, err
	}
	for _, p := range pathPoints {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	if totalSeats < 1 {
		return nil, apperr.NewFieldError("seats", totalSeats, "must be at least 1")
	}
	if totalFare < 0 {
		return nil, apperr.NewFieldError("totalFare", totalFare, "must not be negative")
	}

	now := time.Now().UTC()
	return &Ride{
		id:             uuid.New(),
		routeID:        routeID,
		origin:         origin,
		destination:    destination,
		pathPoints:     slices.Clone(pathPoints),
		totalFare:      totalFare,
		totalSeats:     totalSeats,
		availableSeats: totalSeats,
		distance:       distance,
		duration:       duration,
		status:         StatusActive,
		passengers:     []uuid.UUID{},
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructRide rebuilds a Ride from persistence data (no validation).
func ReconstructRide(
	id uuid.UUID,
	routeID *uuid.UUID,
	origin geo.Place,
	destination geo.Place,
	pathPoints []geo.Coordinate,
	currentLocation *Location,
	totalFare float64,
	totalSeats int,
	availableSeats int,
	distance string,
	duration string,
	status RideStatus,
	passengers []uuid.UUID,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
	endedAt *time.Time,
) *Ride {
	if passengers == nil {
		passengers = []uuid.UUID{}
	}
	return &Ride{
		id:              id,
		routeID:         routeID,
		origin:          origin,
		destination:     destination,
		pathPoints:      pathPoints,
		currentLocation: currentLocation,
		totalFare:       totalFare,
		totalSeats:      totalSeats,
		availableSeats:  availableSeats,
		distance:        distance,
		duration:        duration,
		status:          status,
		passengers:      passengers,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		endedAt:         endedAt,
	}
}

// --- Getters ---

// ID returns the ride's unique identifier.
func (r *Ride) ID() uuid.UUID { return r.id }

// RouteID returns the route this ride was spawned from, if any.
func (r *Ride) RouteID() *uuid.UUID { return r.routeID }

// Origin returns the pickup place.
func (r *Ride) Origin() geo.Place { return r.origin }

// Destination returns the drop-off place.
func (r *Ride) Destination() geo.Place { return r.destination }

// PathPoints returns the route geometry.
func (r *Ride) PathPoints() []geo.Coordinate { return r.pathPoints }

// CurrentLocation returns the last reported position, or nil.
func (r *Ride) CurrentLocation() *Location { return r.currentLocation }

// TotalFare returns the fare for the whole ride.
func (r *Ride) TotalFare() float64 { return r.totalFare }

// TotalSeats returns the seat capacity.
func (r *Ride) TotalSeats() int { return r.totalSeats }

// AvailableSeats returns the number of unbooked seats.
func (r *Ride) AvailableSeats() int { return r.availableSeats }

// Distance returns the caller-supplied distance.
func (r *Ride) Distance() string { return r.distance }

// Duration returns the caller-supplied duration.
func (r *Ride) Duration() string { return r.duration }

// Status returns the current ride status.
func (r *Ride) Status() RideStatus { return r.status }

// Passengers returns the booked passenger ids in booking order.
func (r *Ride) Passengers() []uuid.UUID { return r.passengers }

// Version returns the entity version for optimistic locking.
func (r *Ride) Version() int64 { return r.version }

// CreatedAt returns the creation timestamp.
func (r *Ride) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (r *Ride) UpdatedAt() time.Time { return r.updatedAt }

// EndedAt returns when the ride reached a terminal status.
func (r *Ride) EndedAt() *time.Time { return r.endedAt }

// IsActive is derived from the status.
func (r *Ride) IsActive() bool { return r.status == StatusActive }

// FarePerSeat splits the total fare evenly across the seat capacity.
func (r *Ride) FarePerSeat() float64 {
	if r.totalSeats == 0 {
		return 0
	}
	return r.totalFare / float64(r.totalSeats)
}

// HasPassenger reports whether passengerID already holds a seat.
func (r *Ride) HasPassenger(passengerID uuid.UUID) bool {
	return slices.Contains(r.passengers, passengerID)
}

// --- Behavior ---

// BookSeat reserves one seat for passengerID. Taking the last seat completes the
// ride in the same step.
func (r *Ride) BookSeat(passengerID uuid.UUID) error {
	if passengerID == uuid.Nil {
		return apperr.NewValidationError("passenger ID is required")
	}
	if r.availableSeats <= 0 {
		return apperr.New(apperr.KindNoSeatsAvailable, "no available seats")
	}
	if r.status != StatusActive {
		return r.notActiveError()
	}
	if r.HasPassenger(passengerID) {
		return apperr.New(apperr.KindAlreadyBooked, "passenger already booked")
	}

	now := time.Now().UTC()
	r.passengers = append(r.passengers, passengerID)
	r.availableSeats--
	if r.availableSeats == 0 {
		r.finish(StatusCompleted, now)
	}
	r.updatedAt = now
	return nil
}

// UpdateLocation replaces the current location wholesale.
func (r *Ride) UpdateLocation(coords geo.Coordinate, at time.Time) error {
	if err := coords.Validate(); err != nil {
		return err
	}
	if r.status != StatusActive {
		return r.notActiveError()
	}
	r.currentLocation = &Location{Coordinates: coords, Timestamp: at.UTC()}
	r.updatedAt = time.Now().UTC()
	return nil
}

// End cancels an active ride.
func (r *Ride) End() error {
	if !r.status.CanTransitionTo(StatusCancelled) {
		return r.notActiveError()
	}
	now := time.Now().UTC()
	r.finish(StatusCancelled, now)
	r.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (r *Ride) IncrementVersion() {
	r.version++
	r.updatedAt = time.Now().UTC()
}

// finish moves the ride into a terminal status and clears its live location.
func (r *Ride) finish(status RideStatus, at time.Time) {
	r.status = status
	r.currentLocation = nil
	r.endedAt = &at
}

func (r *Ride) notActiveError() error {
	return apperr.New(apperr.KindRideNotActive, fmt.Sprintf("ride is %s", r.status))
}
