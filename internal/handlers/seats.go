package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Seats handlers

// ListAvailableSeats - GET /api/flights/:flightID/seats
func (h *Handlers) ListAvailableSeats(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("flightID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}

	seats, err := h.services.Inventory.GetAvailableSeats(c.Request.Context(), flightID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"flight_id": flightID, "seats": seats})
}

// ProvisionFlight - POST /api/flights/:flightID/seats
// Creates the Available seat map for a flight. Existing seats are left
// untouched, so re-provisioning is safe.
func (h *Handlers) ProvisionFlight(c *gin.Context) {
	flightID, err := strconv.ParseInt(c.Param("flightID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flight id"})
		return
	}

	var req struct {
		SeatIDs []string `json:"seat_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Inventory.ProvisionFlight(c.Request.Context(), flightID, req.SeatIDs); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}
