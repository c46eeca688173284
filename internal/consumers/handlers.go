package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"skybook/internal/models"
	"skybook/internal/repository"

	"github.com/nats-io/stan.go"
)

const handleTimeout = 30 * time.Second

// Handlers processes booking events off the queue. Every handler is
// idempotent: NATS Streaming redelivers on missed acks, so the same event
// can arrive more than once.
type Handlers struct {
	repos *repository.Repositories
}

func NewHandlers(repos *repository.Repositories) *Handlers {
	return &Handlers{repos: repos}
}

// HandleConfirmationNotification delivers the booking confirmation to the
// customer channel. Delivery here is a structured log entry; a mail or push
// gateway plugs in behind the same event.
func (h *Handlers) HandleConfirmationNotification(msg *stan.Msg) {
	var notification models.ConfirmationNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		slog.Error("Failed to unmarshal confirmation notification", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	booking, err := h.repos.Bookings.GetByID(ctx, notification.BookingID)
	if err != nil {
		slog.Error("Failed to load booking for notification",
			"error", err,
			"booking_id", notification.BookingID)
		return
	}
	if booking == nil {
		slog.Warn("Notification for unknown booking", "booking_id", notification.BookingID)
		return
	}

	slog.Info("Booking confirmation sent",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"customer_ref", booking.CustomerRef)
}

// HandleBookingExpired logs expired bookings for operational visibility.
// The seat holds were already released by the sweeper before this event was
// published.
func (h *Handlers) HandleBookingExpired(msg *stan.Msg) {
	var event models.BookingExpiredEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking expired event", "error", err)
		return
	}

	slog.Info("Booking expired",
		"booking_id", event.BookingID,
		"flight_id", event.FlightID,
		"reason", event.Reason)
}

// HandleSeatReleased traces individual seat releases.
func (h *Handlers) HandleSeatReleased(msg *stan.Msg) {
	var event models.SeatReleasedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to unmarshal seat released event", "error", err)
		return
	}

	slog.Debug("Seat released",
		"booking_id", event.BookingID,
		"flight_id", event.FlightID,
		"seat_id", event.SeatID,
		"reason", event.Reason)
}
