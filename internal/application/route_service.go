package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	driverDomain "github.com/paklift/service-ride/internal/domain/driver"
	"github.com/paklift/service-ride/internal/domain/geo"
	routeDomain "github.com/paklift/service-ride/internal/domain/route"
	"github.com/paklift/service-ride/internal/events/schema"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

// PublishRouteRequest holds the data a driver submits to publish a route.
type PublishRouteRequest struct {
	// DriverID is honoured for admins only; drivers always publish as themselves.
	DriverID         *uuid.UUID `json:"driverId"`
	VehicleID        *uuid.UUID `json:"vehicleId"`
	From             string     `json:"from"`
	To               string     `json:"to"`
	PlaceName        string     `json:"placeName"`
	Distance         string     `json:"distance"`
	Duration         string     `json:"duration"`
	Fare             *float64   `json:"fare"`
	Seats            *int       `json:"seats"`
	FromLocation     *LatLng    `json:"fromLocation"`
	ToLocation       *LatLng    `json:"toLocation"`
	RouteCoordinates []LatLng   `json:"routeCoordinates"`
	Status           string     `json:"status"`
}

// RouteService is the application service for the route registry.
type RouteService struct {
	repo           routeDomain.RouteRepository
	directory      driverDomain.Directory
	geocoder       geo.Geocoder
	publisher      EventPublisher
	logger         *zap.Logger
	geocodeTimeout time.Duration
}

// NewRouteService creates a new RouteService.
func NewRouteService(
	repo routeDomain.RouteRepository,
	directory driverDomain.Directory,
	geocoder geo.Geocoder,
	publisher EventPublisher,
	logger *zap.Logger,
	geocodeTimeout time.Duration,
) *RouteService {
	return &RouteService{
		repo:           repo,
		directory:      directory,
		geocoder:       geocoder,
		publisher:      publisher,
		logger:         logger,
		geocodeTimeout: geocodeTimeout,
	}
}

// PublishRoute registers a route for driverID on one of the driver's vehicles.
func (s *RouteService) PublishRoute(ctx context.Context, driverID uuid.UUID, req PublishRouteRequest) (*RouteDTO, error) {
	from := strings.TrimSpace(req.From)
	to := strings.TrimSpace(req.To)
	if from == "" {
		return nil, apperr.NewRequiredFieldError("from")
	}
	if to == "" {
		return nil, apperr.NewRequiredFieldError("to")
	}
	status, err := routeDomain.ParseRouteStatus(req.Status)
	if err != nil {
		return nil, apperr.NewFieldError("status", req.Status, "must be active or inactive")
	}
	originCoords, err := latLngToCoordinate("fromLocation", req.FromLocation)
	if err != nil {
		return nil, err
	}
	destCoords, err := latLngToCoordinate("toLocation", req.ToLocation)
	if err != nil {
		return nil, err
	}
	path := make([]geo.Coordinate, 0, len(req.RouteCoordinates))
	for i := range req.RouteCoordinates {
		c, err := latLngToCoordinate("routeCoordinates", &req.RouteCoordinates[i])
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apperr.NewRequiredFieldError("routeCoordinates")
		}
		path = append(path, *c)
	}

	if _, err := s.directory.FindDriver(ctx, driverID); err != nil {
		return nil, s.logStorage("find driver", err, zap.String("driver_id", driverID.String()))
	}
	vehicles, err := s.directory.VehiclesForDriver(ctx, driverID)
	if err != nil {
		return nil, s.logStorage("find vehicles", err, zap.String("driver_id", driverID.String()))
	}
	if len(vehicles) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "driver has no registered vehicle")
	}
	vehicle, ok := driverDomain.SelectVehicle(vehicles, req.VehicleID)
	if !ok {
		return nil, apperr.NewNotFoundError("Vehicle", req.VehicleID.String())
	}

	seats := vehicle.NumberOfSeats
	if req.Seats != nil {
		seats = *req.Seats
	}
	var fare float64
	if req.Fare != nil {
		fare = *req.Fare
	}

	destination := geo.Place{Name: to, Coordinates: destCoords}
	if !destination.Resolved() {
		coords, err := geocodeWithTimeout(ctx, s.geocoder, s.geocodeTimeout, to)
		if err != nil {
			s.logger.Warn("destination geocoding failed",
				zap.String("place", to),
				zap.Error(err),
			)
			return nil, apperr.NewValidationError("destination coordinates are missing and could not be resolved")
		}
		destination.Coordinates = &coords
	}

	origin := geo.Place{Name: from, Coordinates: originCoords}
	if !origin.Resolved() {
		if coords, err := geocodeWithTimeout(ctx, s.geocoder, s.geocodeTimeout, from); err == nil {
			origin.Coordinates = &coords
		} else {
			s.logger.Info("origin left unresolved",
				zap.String("place", from),
				zap.Error(err),
			)
		}
	}

	rt, err := routeDomain.NewRoute(driverID, vehicle.ID, origin, destination, path,
		req.PlaceName, req.Distance, req.Duration, fare, seats, status)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, rt); err != nil {
		return nil, s.logStorage("save route", err, zap.String("route_id", rt.ID().String()))
	}

	s.logger.Info("route published",
		zap.String("route_id", rt.ID().String()),
		zap.String("driver_id", driverID.String()),
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("destination", to),
	)

	publishEvent(ctx, s.publisher, s.logger, schema.TopicRouteEvents, schema.RoutePublished, rt.ID().String(), schema.RoutePublishedEvent{
		RouteID:         rt.ID(),
		DriverID:        driverID,
		VehicleID:       vehicle.ID,
		DestinationName: to,
		PlaceName:       rt.PlaceName(),
		OccurredAt:      time.Now().UTC(),
	})

	result := toRouteDTO(rt)
	return &result, nil
}

// GetRoute retrieves a single route.
func (s *RouteService) GetRoute(ctx context.Context, routeID uuid.UUID) (*RouteDTO, error) {
	rt, err := s.repo.FindByID(ctx, routeID)
	if err != nil {
		return nil, s.logStorage("find route", err, zap.String("route_id", routeID.String()))
	}
	result := toRouteDTO(rt)
	return &result, nil
}

func (s *RouteService) logStorage(op string, err error, fields ...zap.Field) error {
	if apperr.Is(err, apperr.KindStorage) || apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error("route storage failure",
			append(fields, zap.String("op", op), zap.Error(err))...,
		)
	}
	return err
}

// latLngToCoordinate converts an optional {lat,lng} pair. A half-filled pair is an error.
func latLngToCoordinate(field string, ll *LatLng) (*geo.Coordinate, error) {
	if ll == nil || (ll.Lat == nil && ll.Lng == nil) {
		return nil, nil
	}
	if ll.Lat == nil {
		return nil, apperr.NewRequiredFieldError(field + ".lat")
	}
	if ll.Lng == nil {
		return nil, apperr.NewRequiredFieldError(field + ".lng")
	}
	c := geo.Coordinate{Latitude: *ll.Lat, Longitude: *ll.Lng}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
