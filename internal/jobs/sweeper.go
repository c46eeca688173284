package jobs

import (
	"context"
	"log/slog"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
	"skybook/internal/retry"
	"skybook/internal/service"
)

// HoldExpirySweeper periodically reclaims seat holds whose payment window
// has lapsed. It is safe to run multiple instances: every release is
// re-verified under the seat lock, so concurrent sweepers just skip each
// other's work.
type HoldExpirySweeper struct {
	inventory *service.InventoryService
	interval  time.Duration
	policy    retry.Policy
	ticker    *time.Ticker
	done      chan bool
}

func NewHoldExpirySweeper(inventory *service.InventoryService, interval time.Duration) *HoldExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HoldExpirySweeper{
		inventory: inventory,
		interval:  interval,
		policy:    retry.DefaultPolicy(),
		done:      make(chan bool),
	}
}

// Start begins the background sweep loop. The first pass runs immediately.
func (s *HoldExpirySweeper) Start(ctx context.Context) {
	slog.Info("Starting hold expiry sweeper", "interval", s.interval.String())

	s.ticker = time.NewTicker(s.interval)

	go s.sweep(ctx)

	go func() {
		for {
			select {
			case <-s.ticker.C:
				go s.sweep(ctx)
			case <-s.done:
				slog.Info("Hold expiry sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweep loop.
func (s *HoldExpirySweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
}

// Sweep runs a single pass, retrying transient infrastructure failures.
func (s *HoldExpirySweeper) Sweep(ctx context.Context) (*models.ExpireOldHoldsResult, error) {
	var result *models.ExpireOldHoldsResult
	err := s.policy.Do(ctx, func() error {
		var err error
		result, err = s.inventory.ExpireOldHolds(ctx)
		return err
	}, apperrors.IsInfrastructure)
	return result, err
}

func (s *HoldExpirySweeper) sweep(ctx context.Context) {
	result, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("Hold expiry sweep failed", "error", err)
		return
	}

	if result.Released == 0 && result.Expired == 0 {
		slog.Debug("No expired holds found", "scanned", result.Scanned)
		return
	}

	slog.Info("Hold expiry sweep completed",
		"scanned", result.Scanned,
		"released", result.Released,
		"expired_bookings", result.Expired,
		"skipped", result.Skipped)
}
