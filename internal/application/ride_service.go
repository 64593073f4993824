package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paklift/service-ride/internal/domain/geo"
	rideDomain "github.com/paklift/service-ride/internal/domain/ride"
	routeDomain "github.com/paklift/service-ride/internal/domain/route"
	"github.com/paklift/service-ride/internal/events/schema"
	"github.com/paklift/service-ride/internal/platform/apperr"
	"github.com/paklift/service-ride/internal/platform/metrics"
)

// CreateRideRequest holds the data needed to open a ride.
type CreateRideRequest struct {
	From             PlaceInput       `json:"from"`
	To               PlaceInput       `json:"to"`
	TotalFare        *float64         `json:"totalFare"`
	Seats            int              `json:"seats"`
	Distance         string           `json:"distance"`
	Duration         string           `json:"duration"`
	RouteCoordinates []geo.Coordinate `json:"routeCoordinates"`
}

// UpdateLocationRequest carries one position report.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	// Timestamp is epoch milliseconds. Omitted means now.
	Timestamp *int64 `json:"timestamp"`
}

// RideServiceOptions tunes the ride service.
type RideServiceOptions struct {
	GeocodeTimeout time.Duration
}

// RideService is the application service orchestrating ride use cases.
type RideService struct {
	repo      rideDomain.RideRepository
	routes    routeDomain.RouteRepository
	geocoder  geo.Geocoder
	fares     rideDomain.FareStrategy
	publisher EventPublisher
	logger    *zap.Logger
	opts      RideServiceOptions
	now       func() time.Time
}

// NewRideService creates a new RideService.
func NewRideService(
	repo rideDomain.RideRepository,
	routes routeDomain.RouteRepository,
	geocoder geo.Geocoder,
	fares rideDomain.FareStrategy,
	publisher EventPublisher,
	logger *zap.Logger,
	opts RideServiceOptions,
) *RideService {
	return &RideService{
		repo:      repo,
		routes:    routes,
		geocoder:  geocoder,
		fares:     fares,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateRide opens a new ride, geocoding any endpoint supplied without coordinates.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*RideDTO, error) {
	origin, err := geo.NewPlace(req.From.Name, req.From.Coordinates)
	if err != nil {
		return nil, err
	}
	destination, err := geo.NewPlace(req.To.Name, req.To.Coordinates)
	if err != nil {
		return nil, err
	}
	if origin.Name == "" || destination.Name == "" {
		return nil, apperr.NewValidationError("from.name and to.name are required")
	}
	if req.Seats < 1 {
		return nil, apperr.NewFieldError("seats", req.Seats, "must be at least 1")
	}

	totalFare, err := s.fareFor(req.TotalFare, req.Distance, req.Seats)
	if err != nil {
		return nil, err
	}

	return s.openRide(ctx, origin, destination, req.RouteCoordinates, totalFare, req.Seats, req.Distance, req.Duration, nil)
}

// CreateRideFromRoute opens a ride from a published route.
func (s *RideService) CreateRideFromRoute(ctx context.Context, routeID uuid.UUID) (*RideDTO, error) {
	rt, err := s.routes.FindByID(ctx, routeID)
	if err != nil {
		return nil, s.logStorage("find route", err, zap.String("route_id", routeID.String()))
	}
	if rt.Status() != routeDomain.StatusActive {
		return nil, apperr.NewValidationError("route is not active")
	}

	id := rt.ID()
	return s.openRide(ctx, rt.Origin(), rt.Destination(), rt.PathPoints(), rt.Fare(), rt.Seats(), rt.Distance(), rt.Duration(), &id)
}

func (s *RideService) openRide(
	ctx context.Context,
	origin, destination geo.Place,
	path []geo.Coordinate,
	totalFare float64,
	seats int,
	distance, duration string,
	routeID *uuid.UUID,
) (*RideDTO, error) {
	origin, err := s.resolve(ctx, "origin", origin)
	if err != nil {
		return nil, err
	}
	destination, err = s.resolve(ctx, "destination", destination)
	if err != nil {
		return nil, err
	}

	r, err := rideDomain.NewRide(origin, destination, path, totalFare, seats, distance, duration, routeID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, r); err != nil {
		return nil, s.logStorage("save ride", err, zap.String("ride_id", r.ID().String()))
	}

	s.logger.Info("ride created",
		zap.String("ride_id", r.ID().String()),
		zap.String("from", origin.Name),
		zap.String("to", destination.Name),
		zap.Int("seats", seats),
	)

	evt := schema.RideCreatedEvent{
		RideID:          r.ID(),
		RouteID:         routeID,
		OriginName:      origin.Name,
		DestinationName: destination.Name,
		TotalSeats:      r.TotalSeats(),
		TotalFare:       r.TotalFare(),
		OccurredAt:      s.now(),
	}
	publishEvent(ctx, s.publisher, s.logger, schema.TopicRideEvents, schema.RideCreated, r.ID().String(), evt)

	result := toRideDTO(r)
	return &result, nil
}

// BookSeat reserves a seat on an active ride for passengerID.
func (s *RideService) BookSeat(ctx context.Context, rideID, passengerID uuid.UUID) (*RideDTO, error) {
	if passengerID == uuid.Nil {
		return nil, apperr.NewValidationError("passenger ID is required")
	}

	r, err := s.mutate(ctx, rideID, func(r *rideDomain.Ride) error {
		return r.BookSeat(passengerID)
	})
	if err != nil {
		metrics.SeatBookingsTotal.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}
	metrics.SeatBookingsTotal.WithLabelValues("booked").Inc()

	s.logger.Info("seat booked",
		zap.String("ride_id", rideID.String()),
		zap.String("passenger_id", passengerID.String()),
		zap.Int("available_seats", r.AvailableSeats()),
	)

	now := s.now()
	publishEvent(ctx, s.publisher, s.logger, schema.TopicRideEvents, schema.RideSeatBooked, rideID.String(), schema.SeatBookedEvent{
		RideID:         rideID,
		PassengerID:    passengerID,
		AvailableSeats: r.AvailableSeats(),
		OccurredAt:     now,
	})

	if r.Status() == rideDomain.StatusCompleted {
		metrics.RideTransitionsTotal.WithLabelValues(string(rideDomain.StatusCompleted)).Inc()
		publishEvent(ctx, s.publisher, s.logger, schema.TopicRideEvents, schema.RideCompleted, rideID.String(), schema.RideCompletedEvent{
			RideID:     rideID,
			Passengers: r.Passengers(),
			OccurredAt: now,
		})
	}

	result := toRideDTO(r)
	return &result, nil
}

// UpdateLocation records the ride's current position.
func (s *RideService) UpdateLocation(ctx context.Context, rideID uuid.UUID, req UpdateLocationRequest) (*CurrentLocationDTO, error) {
	if req.Latitude == nil {
		return nil, apperr.NewRequiredFieldError("latitude")
	}
	if req.Longitude == nil {
		return nil, apperr.NewRequiredFieldError("longitude")
	}
	coords := geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if err := coords.Validate(); err != nil {
		return nil, err
	}

	at := s.now()
	if req.Timestamp != nil {
		if *req.Timestamp <= 0 {
			return nil, apperr.NewFieldError("timestamp", *req.Timestamp, "must be a positive epoch-millisecond value")
		}
		at = time.UnixMilli(*req.Timestamp).UTC()
	}

	r, err := s.mutate(ctx, rideID, func(r *rideDomain.Ride) error {
		return r.UpdateLocation(coords, at)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("ride location updated",
		zap.String("ride_id", rideID.String()),
		zap.Float64("latitude", coords.Latitude),
		zap.Float64("longitude", coords.Longitude),
	)
	return toCurrentLocationDTO(r.CurrentLocation()), nil
}

// EndRide cancels an active ride.
func (s *RideService) EndRide(ctx context.Context, rideID, endedBy uuid.UUID) (*EndRideDTO, error) {
	r, err := s.mutate(ctx, rideID, func(r *rideDomain.Ride) error {
		return r.End()
	})
	if err != nil {
		return nil, err
	}

	metrics.RideTransitionsTotal.WithLabelValues(string(rideDomain.StatusCancelled)).Inc()
	s.logger.Info("ride ended",
		zap.String("ride_id", rideID.String()),
		zap.String("ended_by", endedBy.String()),
	)

	endedAt := *r.EndedAt()
	publishEvent(ctx, s.publisher, s.logger, schema.TopicRideEvents, schema.RideCancelled, rideID.String(), schema.RideCancelledEvent{
		RideID:     rideID,
		EndedBy:    endedBy,
		Passengers: r.Passengers(),
		EndedAt:    endedAt,
		OccurredAt: s.now(),
	})

	return &EndRideDTO{
		Status:   r.Status().String(),
		IsActive: r.IsActive(),
		EndedAt:  endedAt,
	}, nil
}

// GetLocation returns the ride's location summary.
func (s *RideService) GetLocation(ctx context.Context, rideID uuid.UUID) (*LocationSummaryDTO, error) {
	r, err := s.repo.FindByID(ctx, rideID)
	if err != nil {
		return nil, s.logStorage("find ride", err, zap.String("ride_id", rideID.String()))
	}

	summary := &LocationSummaryDTO{
		Status:   r.Status().String(),
		IsActive: r.IsActive(),
		From:     r.Origin(),
		To:       r.Destination(),
	}
	if loc := r.CurrentLocation(); loc != nil {
		coords := loc.Coordinates
		ts := loc.Timestamp
		durationMs := s.now().Sub(r.CreatedAt()).Milliseconds()
		summary.Location = &coords
		summary.LastUpdated = &ts
		summary.RideDurationMs = &durationMs
	}
	return summary, nil
}

// GetRide retrieves a single ride.
func (s *RideService) GetRide(ctx context.Context, rideID uuid.UUID) (*RideDTO, error) {
	r, err := s.repo.FindByID(ctx, rideID)
	if err != nil {
		return nil, s.logStorage("find ride", err, zap.String("ride_id", rideID.String()))
	}
	result := toRideDTO(r)
	return &result, nil
}

// ListActive returns every active ride.
func (s *RideService) ListActive(ctx context.Context) ([]RideDTO, error) {
	rides, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, s.logStorage("list active rides", err)
	}
	dtos := make([]RideDTO, len(rides))
	for i, r := range rides {
		dtos[i] = toRideDTO(r)
	}
	return dtos, nil
}

// ListAllRides returns all rides with pagination (admin).
func (s *RideService) ListAllRides(ctx context.Context, page, limit int) ([]RideDTO, int64, error) {
	rides, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, s.logStorage("list rides", err)
	}
	dtos := make([]RideDTO, len(rides))
	for i, r := range rides {
		dtos[i] = toRideDTO(r)
	}
	return dtos, total, nil
}

// GetRideStats returns ride counts by status (admin).
func (s *RideService) GetRideStats(ctx context.Context) (map[string]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, s.logStorage("count rides", err)
	}
	for _, st := range []rideDomain.RideStatus{rideDomain.StatusActive, rideDomain.StatusCompleted, rideDomain.StatusCancelled} {
		if _, ok := counts[st.String()]; !ok {
			counts[st.String()] = 0
		}
	}
	return counts, nil
}

// mutate applies fn to the ride under the repository's row lock. Domain errors
// from fn abort without writing.
func (s *RideService) mutate(ctx context.Context, rideID uuid.UUID, fn func(*rideDomain.Ride) error) (*rideDomain.Ride, error) {
	r, err := s.repo.Mutate(ctx, rideID, fn)
	if err != nil {
		return nil, s.logStorage("update ride", err, zap.String("ride_id", rideID.String()))
	}
	return r, nil
}

// fareFor returns the supplied fare, or an estimate from the distance string.
func (s *RideService) fareFor(supplied *float64, distance string, seats int) (float64, error) {
	if supplied != nil {
		if *supplied < 0 {
			return 0, apperr.NewFieldError("totalFare", *supplied, "must not be negative")
		}
		return *supplied, nil
	}
	km, ok := rideDomain.ParseDistanceKm(distance)
	if !ok || s.fares == nil {
		return 0, nil
	}
	fare, err := s.fares.Estimate(rideDomain.FareParams{DistanceKm: km, Seats: seats})
	if err != nil {
		return 0, apperr.NewValidationError(fmt.Sprintf("fare estimation failed: %v", err))
	}
	return fare, nil
}

// resolve fills in coordinates for a place that has none.
func (s *RideService) resolve(ctx context.Context, endpoint string, p geo.Place) (geo.Place, error) {
	if p.Resolved() {
		return p, nil
	}
	coords, err := geocodeWithTimeout(ctx, s.geocoder, s.opts.GeocodeTimeout, p.Name)
	if err != nil {
		s.logger.Warn("geocoding failed",
			zap.String("endpoint", endpoint),
			zap.String("place", p.Name),
			zap.Error(err),
		)
		return geo.Place{}, apperr.Wrap(apperr.KindGeocodeFailed,
			fmt.Sprintf("could not resolve coordinates for %s %q", endpoint, strings.TrimSpace(p.Name)), err)
	}
	p.Coordinates = &coords
	return p, nil
}

// logStorage logs infrastructure failures with context and returns err unchanged.
func (s *RideService) logStorage(op string, err error, fields ...zap.Field) error {
	if apperr.Is(err, apperr.KindStorage) || apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error("ride storage failure",
			append(fields, zap.String("op", op), zap.Error(err))...,
		)
	}
	return err
}
