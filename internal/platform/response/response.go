// Package response writes the JSON envelope used by every HTTP endpoint.
package response

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paklift/service-ride/internal/platform/apperr"
)

// Envelope is the top-level JSON body of every response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Pagination `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 response with paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Meta: &Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// BadRequest writes a 400 invalid_input response.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, ErrorBody{Code: string(apperr.KindInvalidInput), Message: message})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, apperr.NewUnauthorizedError(message))
}

// Forbidden writes a 403 response.
func Forbidden(c *gin.Context, message string) {
	Error(c, apperr.NewForbiddenError(message))
}

// Error maps err to a status code and writes it. Storage and untyped errors are
// reported with a generic message.
func Error(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind == apperr.KindStorage || appErr.Kind == apperr.KindInternal {
		_ = c.Error(err)
		abort(c, http.StatusInternalServerError, ErrorBody{
			Code:    string(apperr.KindInternal),
			Message: "internal server error",
		})
		return
	}

	abort(c, StatusFor(appErr.Kind), ErrorBody{
		Code:    string(appErr.Kind),
		Message: appErr.Message,
		Field:   appErr.Field,
		Value:   appErr.Value,
	})
}

// StatusFor returns the HTTP status code for an error kind.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRideNotActive, apperr.KindNoSeatsAvailable, apperr.KindAlreadyBooked, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAddressNotFound, apperr.KindGeocodeFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, body ErrorBody) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &body})
}
