package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/paklift/service-ride/internal/application"
	"github.com/paklift/service-ride/internal/platform/auth"
	"github.com/paklift/service-ride/internal/platform/middleware"
	"github.com/paklift/service-ride/internal/platform/response"
)

// RouteHandler handles HTTP requests for route publication and matching.
type RouteHandler struct {
	routes   *application.RouteService
	rides    *application.RideService
	matching *application.MatchingService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routes *application.RouteService, rides *application.RideService, matching *application.MatchingService) *RouteHandler {
	return &RouteHandler{routes: routes, rides: rides, matching: matching}
}

// MatchRequest is the body of POST /api/v1/routes/match.
type MatchRequest struct {
	CustomerLocation string `json:"customerLocation"`
}

// RegisterRoutes registers all route endpoints on the given router group.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	driverRole := middleware.RequireRole(auth.RoleDriver, auth.RoleAdmin)

	public := r.Group("/api/v1/routes")
	{
		public.POST("/match", h.MatchDestination)
		public.GET("/nearby", h.MatchNearby)
		public.GET("/:id", h.GetRoute)
	}

	routes := r.Group("/api/v1/routes")
	routes.Use(authMW, driverRole)
	{
		routes.POST("", h.PublishRoute)
		routes.POST("/:id/rides", h.CreateRideFromRoute)
	}
}

// PublishRoute handles POST /api/v1/routes. Admins may publish on behalf of a
// driver via driverId.
func (h *RouteHandler) PublishRoute(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	role, _ := middleware.GetUserRole(c)

	var req application.PublishRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	driverID := userID
	if role == auth.RoleAdmin && req.DriverID != nil {
		driverID = *req.DriverID
	}

	result, err := h.routes.PublishRoute(c.Request.Context(), driverID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// CreateRideFromRoute handles POST /api/v1/routes/:id/rides.
func (h *RouteHandler) CreateRideFromRoute(c *gin.Context) {
	routeID, ok := parseID(c, "route")
	if !ok {
		return
	}

	result, err := h.rides.CreateRideFromRoute(c.Request.Context(), routeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetRoute handles GET /api/v1/routes/:id.
func (h *RouteHandler) GetRoute(c *gin.Context) {
	routeID, ok := parseID(c, "route")
	if !ok {
		return
	}

	result, err := h.routes.GetRoute(c.Request.Context(), routeID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MatchDestination handles POST /api/v1/routes/match.
func (h *RouteHandler) MatchDestination(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.matching.MatchDestination(c.Request.Context(), req.CustomerLocation)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// MatchNearby handles GET /api/v1/routes/nearby?lat=&lng=&radiusKm=.
func (h *RouteHandler) MatchNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		response.BadRequest(c, "lat must be a number")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		response.BadRequest(c, "lng must be a number")
		return
	}
	var radiusKm float64
	if raw := c.Query("radiusKm"); raw != "" {
		if radiusKm, err = strconv.ParseFloat(raw, 64); err != nil {
			response.BadRequest(c, "radiusKm must be a number")
			return
		}
	}

	result, err := h.matching.MatchNearby(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
