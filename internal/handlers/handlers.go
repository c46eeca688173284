package handlers

import (
	"errors"
	"net/http"

	apperrors "skybook/internal/errors"
	"skybook/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// writeError maps domain errors onto HTTP statuses. Unclassified errors are
// reported as 500 without leaking internals.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrBookingNotFound),
		errors.Is(err, apperrors.ErrSeatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrSeatUnavailable),
		errors.Is(err, apperrors.ErrIdempotencyConflict),
		errors.Is(err, apperrors.ErrVersionConflict),
		errors.Is(err, apperrors.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrHoldExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrLockContention):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case apperrors.IsInvalidTransition(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
