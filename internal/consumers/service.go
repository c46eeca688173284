package consumers

import (
	"context"
	"log/slog"

	"skybook/internal/config"
	"skybook/internal/database"
	"skybook/internal/messaging"
	"skybook/internal/models"
	"skybook/internal/repository"
)

// ConsumerService runs the queue subscribers that react to booking events:
// confirmation notifications and released-seat bookkeeping. It shares the
// repositories with the API but never mutates seat holds directly.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	handlers := NewHandlers(repos)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	subjects := map[string]func() error{
		models.EventNotifyConfirmation: func() error {
			_, err := cs.nats.SubscribeQueue(models.EventNotifyConfirmation, "consumers", cs.handlers.HandleConfirmationNotification)
			return err
		},
		models.EventBookingExpired: func() error {
			_, err := cs.nats.SubscribeQueue(models.EventBookingExpired, "consumers", cs.handlers.HandleBookingExpired)
			return err
		},
		models.EventSeatReleased: func() error {
			_, err := cs.nats.SubscribeQueue(models.EventSeatReleased, "consumers", cs.handlers.HandleSeatReleased)
			return err
		},
	}

	for subject, subscribe := range subjects {
		if err := subscribe(); err != nil {
			return err
		}
		slog.Info("Consumer subscribed", "subject", subject)
	}

	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Failed to close NATS connection", "error", err)
		}
	}
	if cs.db != nil {
		return cs.db.Close()
	}
	return nil
}
