// Package schema defines the topics, event types and payloads this service
// exchanges over Kafka.
package schema

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies this service in CloudEvent envelopes.
const Source = "service-ride"

// Topics.
const (
	TopicRideEvents    = "ride.events"
	TopicRouteEvents   = "route.events"
	TopicRideLocations = "ride.locations"
)

// Event types.
const (
	RideCreated          = "ride.created"
	RideSeatBooked       = "ride.seat_booked"
	RideCompleted        = "ride.completed"
	RideCancelled        = "ride.cancelled"
	RoutePublished       = "route.published"
	RideLocationReported = "ride.location_reported"
)

// RideCreatedEvent is published when a ride is opened for booking.
type RideCreatedEvent struct {
	RideID          uuid.UUID  `json:"rideId"`
	RouteID         *uuid.UUID `json:"routeId,omitempty"`
	OriginName      string     `json:"originName"`
	DestinationName string     `json:"destinationName"`
	TotalSeats      int        `json:"totalSeats"`
	TotalFare       float64    `json:"totalFare"`
	OccurredAt      time.Time  `json:"occurredAt"`
}

// SeatBookedEvent is published for every successful booking.
type SeatBookedEvent struct {
	RideID         uuid.UUID `json:"rideId"`
	PassengerID    uuid.UUID `json:"passengerId"`
	AvailableSeats int       `json:"availableSeats"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// RideCompletedEvent is published when the last seat is booked.
type RideCompletedEvent struct {
	RideID     uuid.UUID   `json:"rideId"`
	Passengers []uuid.UUID `json:"passengers"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// RideCancelledEvent is published when a driver ends a ride early.
type RideCancelledEvent struct {
	RideID     uuid.UUID   `json:"rideId"`
	EndedBy    uuid.UUID   `json:"endedBy"`
	Passengers []uuid.UUID `json:"passengers"`
	EndedAt    time.Time   `json:"endedAt"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// RoutePublishedEvent is published when a driver publishes a route.
type RoutePublishedEvent struct {
	RouteID         uuid.UUID `json:"routeId"`
	DriverID        uuid.UUID `json:"driverId"`
	VehicleID       uuid.UUID `json:"vehicleId"`
	DestinationName string    `json:"destinationName"`
	PlaceName       string    `json:"placeName,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// LocationReportedEvent is consumed from driver telemetry.
type LocationReportedEvent struct {
	RideID    uuid.UUID `json:"rideId"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	// Timestamp is epoch milliseconds; zero means "now".
	Timestamp int64 `json:"timestamp,omitempty"`
}
