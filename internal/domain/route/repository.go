package route

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/paklift/service-ride/internal/domain/geo"
)

// RouteRepository defines the persistence contract for route aggregates.
type RouteRepository interface {
	// FindByID retrieves a route by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)

	// FindByDestination lazily yields routes whose destination name or place alias
	// contains text, ignoring case. Each call runs a fresh query; a storage failure
	// is yielded as the final element.
	FindByDestination(ctx context.Context, text string) iter.Seq2[*Route, error]

	// FindNearDestination returns routes whose destination lies within radiusKm of
	// center, nearest first.
	FindNearDestination(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]*Route, error)

	// Save persists a new route.
	Save(ctx context.Context, route *Route) error
}
