package ride

import (
	"context"

	"github.com/google/uuid"
)

// RideRepository defines the persistence contract for ride aggregates.
type RideRepository interface {
	// FindByID retrieves a ride by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Ride, error)

	// ListActive retrieves every ride whose status is active, newest first.
	ListActive(ctx context.Context) ([]*Ride, error)

	// ListAll retrieves all rides with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Ride, int64, error)

	// CountByStatus returns ride counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new ride.
	Save(ctx context.Context, ride *Ride) error

	// Mutate loads the ride under an exclusive row lock, applies fn and persists
	// the result before releasing the lock. Concurrent mutations of one ride are
	// serialized, so none of them is ever rejected for losing a race. An error
	// from fn aborts without writing and is returned unchanged.
	Mutate(ctx context.Context, id uuid.UUID, fn func(*Ride) error) (*Ride, error)
}
