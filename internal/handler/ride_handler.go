package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paklift/service-ride/internal/application"
	"github.com/paklift/service-ride/internal/platform/auth"
	"github.com/paklift/service-ride/internal/platform/middleware"
	"github.com/paklift/service-ride/internal/platform/response"
)

// RideHandler handles HTTP requests for ride operations.
type RideHandler struct {
	service *application.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(service *application.RideService) *RideHandler {
	return &RideHandler{service: service}
}

// RegisterRoutes registers all ride routes on the given router group.
func (h *RideHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	driverRole := middleware.RequireRole(auth.RoleDriver, auth.RoleAdmin)

	public := r.Group("/api/v1/rides")
	{
		public.GET("/active", h.ListActive)
		public.GET("/:id", h.GetRide)
		public.GET("/:id/location", h.GetLocation)
	}

	rides := r.Group("/api/v1/rides")
	rides.Use(authMW)
	{
		rides.POST("", driverRole, h.CreateRide)
		rides.POST("/:id/book", middleware.RequireRole(auth.RoleCustomer, auth.RoleAdmin), h.BookSeat)
		rides.PATCH("/:id/location", driverRole, h.UpdateLocation)
		rides.PATCH("/:id/end", driverRole, h.EndRide)
	}
}

// CreateRide handles POST /api/v1/rides.
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req application.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateRide(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// BookSeat handles POST /api/v1/rides/:id/book. The caller is the passenger.
func (h *RideHandler) BookSeat(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	rideID, ok := parseID(c, "ride")
	if !ok {
		return
	}

	result, err := h.service.BookSeat(c.Request.Context(), rideID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateLocation handles PATCH /api/v1/rides/:id/location.
func (h *RideHandler) UpdateLocation(c *gin.Context) {
	rideID, ok := parseID(c, "ride")
	if !ok {
		return
	}

	var req application.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateLocation(c.Request.Context(), rideID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// EndRide handles PATCH /api/v1/rides/:id/end.
func (h *RideHandler) EndRide(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	rideID, ok := parseID(c, "ride")
	if !ok {
		return
	}

	result, err := h.service.EndRide(c.Request.Context(), rideID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetRide handles GET /api/v1/rides/:id.
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := parseID(c, "ride")
	if !ok {
		return
	}

	result, err := h.service.GetRide(c.Request.Context(), rideID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetLocation handles GET /api/v1/rides/:id/location.
func (h *RideHandler) GetLocation(c *gin.Context) {
	rideID, ok := parseID(c, "ride")
	if !ok {
		return
	}

	result, err := h.service.GetLocation(c.Request.Context(), rideID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListActive handles GET /api/v1/rides/active.
func (h *RideHandler) ListActive(c *gin.Context) {
	result, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parseID reads the :id path parameter, writing a 400 when it is not a UUID.
func parseID(c *gin.Context, entity string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid "+entity+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
