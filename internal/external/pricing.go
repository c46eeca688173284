package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"skybook/internal/models"
)

// Pricer is the pricing collaborator consumed by the inventory service.
// Implementation details (fare classes, taxes) live behind this boundary.
type Pricer interface {
	// CalculateBookingPricing returns the total amount for the selected
	// seats, in minor currency units.
	CalculateBookingPricing(ctx context.Context, flightID int64, seats []models.SeatSelection) (int64, error)

	// RefundEligibility reports whether a cancelled booking qualifies for a
	// refund and for how much.
	RefundEligibility(ctx context.Context, bookingID int64, totalAmount int64, departureAt time.Time) (bool, int64, error)
}

type PricingClient struct {
	baseURL    string
	httpClient *http.Client
}

type PricingConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewPricingClient(cfg PricingConfig) *PricingClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PricingClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type pricingRequest struct {
	FlightID int64                  `json:"flightId"`
	Seats    []models.SeatSelection `json:"seats"`
}

type pricingResponse struct {
	TotalAmount int64  `json:"totalAmount"`
	Currency    string `json:"currency"`
}

func (pc *PricingClient) CalculateBookingPricing(ctx context.Context, flightID int64, seats []models.SeatSelection) (int64, error) {
	payload, err := json.Marshal(pricingRequest{FlightID: flightID, Seats: seats})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal pricing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/pricing/calculate", bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to build pricing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pricing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricing service returned status %d", resp.StatusCode)
	}

	var out pricingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode pricing response: %w", err)
	}

	return out.TotalAmount, nil
}

type refundRequest struct {
	BookingID   int64     `json:"bookingId"`
	TotalAmount int64     `json:"totalAmount"`
	DepartureAt time.Time `json:"departureAt"`
}

type refundResponse struct {
	Eligible bool  `json:"eligible"`
	Amount   int64 `json:"amount"`
}

func (pc *PricingClient) RefundEligibility(ctx context.Context, bookingID int64, totalAmount int64, departureAt time.Time) (bool, int64, error) {
	payload, err := json.Marshal(refundRequest{BookingID: bookingID, TotalAmount: totalAmount, DepartureAt: departureAt})
	if err != nil {
		return false, 0, fmt.Errorf("failed to marshal refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+"/pricing/refund-eligibility", bytes.NewBuffer(payload))
	if err != nil {
		return false, 0, fmt.Errorf("failed to build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("refund eligibility request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf("pricing service returned status %d", resp.StatusCode)
	}

	var out refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, 0, fmt.Errorf("failed to decode refund response: %w", err)
	}

	return out.Eligible, out.Amount, nil
}
