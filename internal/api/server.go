package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"skybook/internal/audit"
	"skybook/internal/config"
	"skybook/internal/database"
	"skybook/internal/external"
	"skybook/internal/handlers"
	"skybook/internal/idempotency"
	"skybook/internal/ledger"
	"skybook/internal/lock"
	"skybook/internal/messaging"
	"skybook/internal/middleware"
	"skybook/internal/repository"
	"skybook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Server is the booking core's HTTP surface.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	redis    *redis.Client
	nats     *messaging.NATSClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// One Redis pool backs both the seat locks and the idempotency store.
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	var recorder audit.Recorder = audit.NopRecorder{}
	if cfg.Elasticsearch.Enabled {
		esRecorder, err := audit.NewElasticsearchRecorder(cfg.Elasticsearch)
		if err != nil {
			log.Fatalf("Failed to create audit recorder: %v", err)
		}
		recorder = esRecorder
	}

	pricer := external.NewPricingClient(cfg.Pricing)
	repos := repository.NewRepositories(db)

	locks := lock.NewManager(
		lock.NewRedisStoreWithClient(rdb, cfg.Redis.Prefix+":lock"),
		lock.Config{TTL: cfg.Service.LockTTL},
	)
	idem := idempotency.NewRedisStore(rdb, cfg.Redis.Prefix+":idem")
	seatLedger := ledger.New(repos.SeatHolds)

	services := service.NewServices(cfg.Service, repos.Bookings, seatLedger, locks, idem, pricer, natsClient, recorder)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		redis:    rdb,
		nats:     natsClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.POST("/retry", h.RetryBooking)
			bookings.GET("/:id", h.GetBooking)
			bookings.GET("/:id/events", h.GetBookingEvents)
			bookings.PATCH("/confirm", h.ConfirmBooking)
			bookings.PATCH("/cancel", h.CancelBooking)
		}

		flights := api.Group("/flights")
		{
			flights.GET("/:flightID/seats", h.ListAvailableSeats)
			flights.POST("/:flightID/seats", h.ProvisionFlight)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	check := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":   check.Status,
		"service":  "skybook-api",
		"database": check,
	})
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes external connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}
