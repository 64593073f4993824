package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paklift/service-ride/internal/domain/geo"
	routeDomain "github.com/paklift/service-ride/internal/domain/route"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

// RouteModel is the GORM model for the driver_routes table.
type RouteModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DriverID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	VehicleID       uuid.UUID       `gorm:"type:uuid;not null"`
	OriginName      string          `gorm:"not null;size:255"`
	OriginLat       *float64        `gorm:""`
	OriginLng       *float64        `gorm:""`
	DestinationName string          `gorm:"not null;size:255"`
	DestinationLat  float64         `gorm:"not null;index:idx_driver_routes_destination,priority:1"`
	DestinationLng  float64         `gorm:"not null;index:idx_driver_routes_destination,priority:2"`
	PathPoints      json.RawMessage `gorm:"type:jsonb"`
	PlaceName       string          `gorm:"size:255"`
	Distance        string          `gorm:"size:50"`
	Duration        string          `gorm:"size:50"`
	Fare            float64         `gorm:"not null"`
	Seats           int             `gorm:"not null"`
	Status          string          `gorm:"not null;size:20"`
	CreatedAt       time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (RouteModel) TableName() string {
	return "driver_routes"
}

// GormRouteRepository is the GORM-based implementation of RouteRepository.
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository.
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// FindByID retrieves a route by its unique identifier.
func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *routeDomain.Route, err error) {
	defer recoverStorage("failed to find route by ID", &err)

	var model RouteModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Route", id.String())
		}
		return nil, apperr.NewStorageError("failed to find route by ID", err)
	}
	return toDomainRoute(&model)
}

// FindByDestination streams routes whose destination name or place alias contains
// text. Rows are decoded one at a time as the caller ranges; stopping early closes
// the cursor.
func (r *GormRouteRepository) FindByDestination(ctx context.Context, text string) iter.Seq2[*routeDomain.Route, error] {
	return func(yield func(*routeDomain.Route, error) bool) {
		pattern := "%" + escapeLike(strings.TrimSpace(text)) + "%"
		rows, err := r.db.WithContext(ctx).
			Model(&RouteModel{}).
			Where(`destination_name ILIKE ? ESCAPE '\' OR place_name ILIKE ? ESCAPE '\'`, pattern, pattern).
			Order("created_at DESC").
			Rows()
		if err != nil {
			yield(nil, apperr.NewStorageError("failed to query routes by destination", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var model RouteModel
			if err := r.db.ScanRows(rows, &model); err != nil {
				yield(nil, apperr.NewStorageError("failed to scan route", err))
				return
			}
			rt, err := toDomainRoute(&model)
			if !yield(rt, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, apperr.NewStorageError("failed to iterate routes", err))
		}
	}
}

// FindNearDestination returns routes whose destination lies within radiusKm of
// center, nearest first. The bounding box narrows the scan to the destination index.
func (r *GormRouteRepository) FindNearDestination(ctx context.Context, center geo.Coordinate, radiusKm float64) (_ []*routeDomain.Route, err error) {
	defer recoverStorage("failed to query routes near destination", &err)

	lo, hi := center.BoundingBox(radiusKm)

	var models []RouteModel
	if err := r.db.WithContext(ctx).
		Where("destination_lat BETWEEN ? AND ?", lo.Latitude, hi.Latitude).
		Where("destination_lng BETWEEN ? AND ?", lo.Longitude, hi.Longitude).
		Find(&models).Error; err != nil {
		return nil, apperr.NewStorageError("failed to query routes near destination", err)
	}

	type candidate struct {
		route    *routeDomain.Route
		distance float64
	}
	candidates := make([]candidate, 0, len(models))
	for i := range models {
		rt, err := toDomainRoute(&models[i])
		if err != nil {
			return nil, err
		}
		if d := center.DistanceKm(rt.DestinationCoordinates()); d <= radiusKm {
			candidates = append(candidates, candidate{route: rt, distance: d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].distance < candidates[j].distance })

	routes := make([]*routeDomain.Route, len(candidates))
	for i, c := range candidates {
		routes[i] = c.route
	}
	return routes, nil
}

// Save persists a new route.
func (r *GormRouteRepository) Save(ctx context.Context, rt *routeDomain.Route) (err error) {
	defer recoverStorage("failed to save route", &err)

	model, err := toRouteModel(rt)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apperr.NewStorageError("failed to save route", err)
	}
	return nil
}

// escapeLike escapes the LIKE metacharacters so text matches literally.
func escapeLike(text string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
}

// --- Conversion Helpers ---

func toRouteModel(rt *routeDomain.Route) (*RouteModel, error) {
	path, err := json.Marshal(nonNilPath(rt.PathPoints()))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal path points: %w", err)
	}

	dest := rt.DestinationCoordinates()
	model := &RouteModel{
		ID:              rt.ID(),
		DriverID:        rt.DriverID(),
		VehicleID:       rt.VehicleID(),
		OriginName:      rt.Origin().Name,
		DestinationName: rt.Destination().Name,
		DestinationLat:  dest.Latitude,
		DestinationLng:  dest.Longitude,
		PathPoints:      path,
		PlaceName:       rt.PlaceName(),
		Distance:        rt.Distance(),
		Duration:        rt.Duration(),
		Fare:            rt.Fare(),
		Seats:           rt.Seats(),
		Status:          string(rt.Status()),
		CreatedAt:       rt.CreatedAt(),
	}
	if c := rt.Origin().Coordinates; c != nil {
		lat, lng := c.Latitude, c.Longitude
		model.OriginLat = &lat
		model.OriginLng = &lng
	}
	return model, nil
}

func toDomainRoute(m *RouteModel) (*routeDomain.Route, error) {
	var path []geo.Coordinate
	if len(m.PathPoints) > 0 {
		if err := json.Unmarshal(m.PathPoints, &path); err != nil {
			return nil, apperr.NewStorageError("failed to unmarshal path points", err)
		}
	}

	status, err := routeDomain.ParseRouteStatus(m.Status)
	if err != nil {
		return nil, apperr.NewStorageError("invalid stored route status", err)
	}

	origin := geo.Place{Name: m.OriginName}
	if m.OriginLat != nil && m.OriginLng != nil {
		origin.Coordinates = &geo.Coordinate{Latitude: *m.OriginLat, Longitude: *m.OriginLng}
	}
	destination := geo.Place{
		Name:        m.DestinationName,
		Coordinates: &geo.Coordinate{Latitude: m.DestinationLat, Longitude: m.DestinationLng},
	}

	return routeDomain.ReconstructRoute(
		m.ID, m.DriverID, m.VehicleID,
		origin, destination,
		path,
		m.PlaceName, m.Distance, m.Duration,
		m.Fare,
		m.Seats,
		status,
		m.CreatedAt,
	), nil
}
