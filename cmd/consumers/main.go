package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skybook/internal/audit"
	"skybook/internal/config"
	"skybook/internal/consumers"
	"skybook/internal/database"
	"skybook/internal/external"
	"skybook/internal/idempotency"
	"skybook/internal/jobs"
	"skybook/internal/ledger"
	"skybook/internal/lock"
	"skybook/internal/logger"
	"skybook/internal/messaging"
	"skybook/internal/repository"
	"skybook/internal/service"

	"github.com/redis/go-redis/v9"
)

// The worker binary runs the event consumers and the hold-expiry sweeper.
func main() {
	log.Println("Starting worker service...")

	cfg := config.Load()
	cfg.NATS.ClientID = "skybook-worker"

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}
	if err := consumerService.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	sweeper, cleanup, err := buildSweeper(cfg)
	if err != nil {
		log.Fatalf("Failed to build sweeper: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)

	log.Println("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker service...")

	sweeper.Stop()
	cancel()
	cleanup()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Worker service stopped")
}

// buildSweeper wires an inventory service for the sweeper against the same
// stores the API uses.
func buildSweeper(cfg *config.Config) (*jobs.HoldExpirySweeper, func(), error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		db.Close()
		return nil, nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, nil, err
	}

	repos := repository.NewRepositories(db)
	locks := lock.NewManager(
		lock.NewRedisStoreWithClient(rdb, cfg.Redis.Prefix+":lock"),
		lock.Config{TTL: cfg.Service.LockTTL},
	)
	idem := idempotency.NewRedisStore(rdb, cfg.Redis.Prefix+":idem")
	seatLedger := ledger.New(repos.SeatHolds)
	pricer := external.NewPricingClient(cfg.Pricing)

	inventory := service.NewInventoryService(
		cfg.Service, repos.Bookings, seatLedger, locks, idem, pricer, natsClient, audit.NopRecorder{})

	cleanup := func() {
		if err := natsClient.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
		if err := rdb.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}

	return jobs.NewHoldExpirySweeper(inventory, cfg.SweepInterval), cleanup, nil
}
