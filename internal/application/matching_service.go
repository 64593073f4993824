package application

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/paklift/service-ride/internal/domain/geo"
	routeDomain "github.com/paklift/service-ride/internal/domain/route"
	"github.com/paklift/service-ride/internal/platform/apperr"
)

const (
	defaultNearbyRadiusKm = 5.0
	maxNearbyRadiusKm     = 50.0
)

// MatchingService matches customer destinations against published routes.
type MatchingService struct {
	routes routeDomain.RouteRepository
	logger *zap.Logger
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(routes routeDomain.RouteRepository, logger *zap.Logger) *MatchingService {
	return &MatchingService{routes: routes, logger: logger}
}

// MatchDestination returns the routes whose destination or place alias contains
// customerText. An empty result is a successful "no match".
func (s *MatchingService) MatchDestination(ctx context.Context, customerText string) (*MatchResult, error) {
	query := strings.TrimSpace(customerText)
	if query == "" {
		return nil, apperr.NewValidationError("destination is required")
	}

	matched := []RouteDTO{}
	for rt, err := range s.routes.FindByDestination(ctx, query) {
		if err != nil {
			s.logger.Error("destination match failed",
				zap.String("query", query),
				zap.Error(err),
			)
			return nil, err
		}
		matched = append(matched, toRouteDTO(rt))
	}

	s.logger.Debug("destination matched",
		zap.String("query", query),
		zap.Int("routes", len(matched)),
	)
	return newMatchResult(matched), nil
}

// MatchNearby returns routes whose destination lies within radiusKm of the point.
// A non-positive radius uses the default.
func (s *MatchingService) MatchNearby(ctx context.Context, lat, lng, radiusKm float64) (*MatchResult, error) {
	center := geo.Coordinate{Latitude: lat, Longitude: lng}
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm > maxNearbyRadiusKm {
		return nil, apperr.NewFieldError("radiusKm", radiusKm, fmt.Sprintf("must not exceed %g", maxNearbyRadiusKm))
	}

	routes, err := s.routes.FindNearDestination(ctx, center, radiusKm)
	if err != nil {
		s.logger.Error("nearby match failed",
			zap.Float64("latitude", lat),
			zap.Float64("longitude", lng),
			zap.Error(err),
		)
		return nil, err
	}

	matched := make([]RouteDTO, len(routes))
	for i, rt := range routes {
		dto := toRouteDTO(rt)
		d := center.DistanceKm(rt.DestinationCoordinates())
		dto.DistanceKm = &d
		matched[i] = dto
	}
	return newMatchResult(matched), nil
}

func newMatchResult(routes []RouteDTO) *MatchResult {
	result := &MatchResult{
		Match:         len(routes) > 0,
		MatchedRoutes: routes,
	}
	if result.Match {
		result.Message = fmt.Sprintf("%d rides found", len(routes))
	} else {
		result.Message = "No matching rides found"
	}
	return result
}
