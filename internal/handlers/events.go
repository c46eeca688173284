package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetBookingEvents - GET /api/bookings/:id/events
// Returns the booking's append-only transition history.
func (h *Handlers) GetBookingEvents(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	events, err := h.services.Inventory.GetBookingEvents(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking_id": id, "events": events})
}
