package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/paklift/service-ride/internal/domain/geo"
	rideDomain "github.com/paklift/service-ride/internal/domain/ride"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

// RideModel is the GORM model for the rides table.
type RideModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	RouteID        *uuid.UUID      `gorm:"type:uuid;index"`
	Origin         json.RawMessage `gorm:"type:jsonb;not null"`
	Destination    json.RawMessage `gorm:"type:jsonb;not null"`
	PathPoints     json.RawMessage `gorm:"type:jsonb"`
	CurrentLat     *float64        `gorm:""`
	CurrentLng     *float64        `gorm:""`
	CurrentAt      *time.Time      `gorm:""`
	TotalFare      float64         `gorm:"not null"`
	TotalSeats     int             `gorm:"not null"`
	AvailableSeats int             `gorm:"not null"`
	Distance       string          `gorm:"size:50"`
	Duration       string          `gorm:"size:50"`
	Status         string          `gorm:"not null;size:20;index"`
	Passengers     json.RawMessage `gorm:"type:jsonb;not null"`
	Version        int64           `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null;index"`
	UpdatedAt      time.Time       `gorm:"not null"`
	EndedAt        *time.Time      `gorm:""`
}

// TableName returns the table name for the GORM model.
func (RideModel) TableName() string {
	return "rides"
}

// GormRideRepository is the GORM-based implementation of RideRepository.
type GormRideRepository struct {
	db *gorm.DB
}

// NewGormRideRepository creates a new GormRideRepository.
func NewGormRideRepository(db *gorm.DB) *GormRideRepository {
	return &GormRideRepository{db: db}
}

// FindByID retrieves a ride by its unique identifier.
func (r *GormRideRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *rideDomain.Ride, err error) {
	defer recoverStorage("failed to find ride by ID", &err)

	var model RideModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Ride", id.String())
		}
		return nil, apperr.NewStorageError("failed to find ride by ID", err)
	}
	return toDomainRide(&model)
}

// ListActive retrieves every active ride, newest first.
func (r *GormRideRepository) ListActive(ctx context.Context) (_ []*rideDomain.Ride, err error) {
	defer recoverStorage("failed to list active rides", &err)

	var models []RideModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(rideDomain.StatusActive)).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, apperr.NewStorageError("failed to list active rides", err)
	}
	return toDomainRides(models)
}

// ListAll retrieves all rides with pagination (admin).
func (r *GormRideRepository) ListAll(ctx context.Context, page, limit int) (_ []*rideDomain.Ride, _ int64, err error) {
	defer recoverStorage("failed to list rides", &err)

	var total int64
	if err := r.db.WithContext(ctx).Model(&RideModel{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.NewStorageError("failed to count rides", err)
	}

	var models []RideModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, apperr.NewStorageError("failed to list rides", err)
	}

	rides, err := toDomainRides(models)
	if err != nil {
		return nil, 0, err
	}
	return rides, total, nil
}

// CountByStatus returns ride counts grouped by status (admin).
func (r *GormRideRepository) CountByStatus(ctx context.Context) (_ map[string]int64, err error) {
	defer recoverStorage("failed to count by status", &err)

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&RideModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, apperr.NewStorageError("failed to count by status", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new ride.
func (r *GormRideRepository) Save(ctx context.Context, ride *rideDomain.Ride) (err error) {
	defer recoverStorage("failed to save ride", &err)

	model, err := toRideModel(ride)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apperr.NewStorageError("failed to save ride", err)
	}
	return nil
}

// Mutate applies fn to the ride inside a transaction holding SELECT ... FOR UPDATE
// on its row, then writes the result with the bumped version.
func (r *GormRideRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(*rideDomain.Ride) error) (_ *rideDomain.Ride, err error) {
	defer recoverStorage("failed to update ride", &err)

	var updated *rideDomain.Ride
	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model RideModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NewNotFoundError("Ride", id.String())
			}
			return apperr.NewStorageError("failed to lock ride", err)
		}

		ride, err := toDomainRide(&model)
		if err != nil {
			return err
		}
		if err := fn(ride); err != nil {
			return err
		}
		ride.IncrementVersion()
		if err := update(tx, ride); err != nil {
			return err
		}
		updated = ride
		return nil
	})
	if txErr != nil {
		if _, ok := apperr.As(txErr); ok {
			return nil, txErr
		}
		return nil, apperr.NewStorageError("failed to commit ride update", txErr)
	}
	return updated, nil
}

// update writes a ride whose version has already been incremented. The version
// predicate still guards against writers that bypass the row lock.
func update(tx *gorm.DB, ride *rideDomain.Ride) error {
	model, err := toRideModel(ride)
	if err != nil {
		return err
	}

	expectedVersion := ride.Version() - 1
	result := tx.Model(&RideModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"path_points":     model.PathPoints,
			"current_lat":     model.CurrentLat,
			"current_lng":     model.CurrentLng,
			"current_at":      model.CurrentAt,
			"available_seats": model.AvailableSeats,
			"status":          model.Status,
			"passengers":      model.Passengers,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
			"ended_at":        model.EndedAt,
		})

	if result.Error != nil {
		return apperr.NewStorageError("failed to update ride", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewConflictError("ride was modified by another transaction")
	}
	return nil
}

// --- Conversion Helpers ---

func toRideModel(ride *rideDomain.Ride) (*RideModel, error) {
	origin, err := json.Marshal(ride.Origin())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal origin: %w", err)
	}
	destination, err := json.Marshal(ride.Destination())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal destination: %w", err)
	}
	path, err := json.Marshal(nonNilPath(ride.PathPoints()))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal path points: %w", err)
	}
	passengers, err := json.Marshal(ride.Passengers())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal passengers: %w", err)
	}

	model := &RideModel{
		ID:             ride.ID(),
		RouteID:        ride.RouteID(),
		Origin:         origin,
		Destination:    destination,
		PathPoints:     path,
		TotalFare:      ride.TotalFare(),
		TotalSeats:     ride.TotalSeats(),
		AvailableSeats: ride.AvailableSeats(),
		Distance:       ride.Distance(),
		Duration:       ride.Duration(),
		Status:         ride.Status().String(),
		Passengers:     passengers,
		Version:        ride.Version(),
		CreatedAt:      ride.CreatedAt(),
		UpdatedAt:      ride.UpdatedAt(),
		EndedAt:        ride.EndedAt(),
	}
	if loc := ride.CurrentLocation(); loc != nil {
		lat, lng, at := loc.Coordinates.Latitude, loc.Coordinates.Longitude, loc.Timestamp
		model.CurrentLat = &lat
		model.CurrentLng = &lng
		model.CurrentAt = &at
	}
	return model, nil
}

func toDomainRide(m *RideModel) (*rideDomain.Ride, error) {
	var origin, destination geo.Place
	if err := json.Unmarshal(m.Origin, &origin); err != nil {
		return nil, apperr.NewStorageError("failed to unmarshal origin", err)
	}
	if err := json.Unmarshal(m.Destination, &destination); err != nil {
		return nil, apperr.NewStorageError("failed to unmarshal destination", err)
	}

	var path []geo.Coordinate
	if len(m.PathPoints) > 0 {
		if err := json.Unmarshal(m.PathPoints, &path); err != nil {
			return nil, apperr.NewStorageError("failed to unmarshal path points", err)
		}
	}

	var passengers []uuid.UUID
	if len(m.Passengers) > 0 {
		if err := json.Unmarshal(m.Passengers, &passengers); err != nil {
			return nil, apperr.NewStorageError("failed to unmarshal passengers", err)
		}
	}

	status, err := rideDomain.ParseRideStatus(m.Status)
	if err != nil {
		return nil, apperr.NewStorageError("invalid stored ride status", err)
	}

	var current *rideDomain.Location
	if m.CurrentLat != nil && m.CurrentLng != nil {
		current = &rideDomain.Location{
			Coordinates: geo.Coordinate{Latitude: *m.CurrentLat, Longitude: *m.CurrentLng},
		}
		if m.CurrentAt != nil {
			current.Timestamp = m.CurrentAt.UTC()
		}
	}

	return rideDomain.ReconstructRide(
		m.ID,
		m.RouteID,
		origin,
		destination,
		path,
		current,
		m.TotalFare,
		m.TotalSeats,
		m.AvailableSeats,
		m.Distance,
		m.Duration,
		status,
		passengers,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
		m.EndedAt,
	), nil
}

func toDomainRides(models []RideModel) ([]*rideDomain.Ride, error) {
	rides := make([]*rideDomain.Ride, len(models))
	for i := range models {
		ride, err := toDomainRide(&models[i])
		if err != nil {
			return nil, err
		}
		rides[i] = ride
	}
	return rides, nil
}

func nonNilPath(points []geo.Coordinate) []geo.Coordinate {
	if points == nil {
		return []geo.Coordinate{}
	}
	return points
}
