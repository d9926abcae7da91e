package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "reservation-engine/internal/api/grpc"
	"reservation-engine/internal/api/grpc/interceptor"
	httpapi "reservation-engine/internal/api/http"
	"reservation-engine/internal/config"
	"reservation-engine/internal/domain"
	"reservation-engine/internal/events"
	"reservation-engine/internal/logger"
	"reservation-engine/internal/payment"
	"reservation-engine/internal/repository/postgres"
	"reservation-engine/internal/security"
	"reservation-engine/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	migrateOnStart := flag.Bool("migrate", false, "Apply pending database migrations before serving")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Reservation Engine...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "grpc_address", cfg.GetServerAddress(), "http_address", cfg.GetHTTPAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if *migrateOnStart {
		logger.Info("Applying migrations", "dir", cfg.MigrationsDir)
		if err := postgres.RunMigrations(db, cfg.MigrationsDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Repositories
	store := postgres.NewStore(db, postgres.RetryPolicy{
		MaxRetries:  cfg.Store.MaxRetries,
		BaseBackoff: cfg.BaseBackoff(),
	})

	// Event publication
	var publisher service.EventPublisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		defer kp.Close()
		publisher = kp
		logger.Info("Publishing lifecycle events to Kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		logger.Info("No Kafka brokers configured, lifecycle events are only logged")
	}
	emitter := service.NewEventEmitter(publisher)

	// Initialize Services
	clock := service.SystemClock{}
	syncer := service.NewAssetSynchronizer(store.AssetRepository, store.ReservationRepository, store.ReconciliationRepository, clock)
	reservationSvc := service.NewReservationService(
		store.ReservationRepository,
		store.AssetRepository,
		store.IdentityRepository,
		syncer,
		emitter,
		clock,
		service.Policy{
			InitialStatus: domain.ReservationStatus(cfg.Reservation.InitialStatus),
			LicenseGuard:  cfg.LicenseGuard(),
			MaxPageSize:   cfg.Reservation.MaxPageSize,
		},
	)

	var replay service.ReplayCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		replay = payment.NewRedisReplayCache(rdb, cfg.ReplayTTL())
		logger.Info("Webhook replay cache enabled", "addr", cfg.Redis.Addr)
	}

	processor := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.APIKey, time.Duration(cfg.Payment.TimeoutSeconds)*time.Second)
	paymentSvc := service.NewPaymentService(
		store.ReservationRepository,
		store.PaymentRepository,
		store.ReconciliationRepository,
		reservationSvc,
		processor,
		replay,
		clock,
	)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
	)

	// Register services
	api.RegisterReservationServer(s, api.NewReservationHandler(reservationSvc, paymentSvc))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)
	healthSrv.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// HTTP server for payment webhooks and health
	httpSrv := &http.Server{
		Addr:              cfg.GetHTTPAddress(),
		Handler:           httpapi.NewRouter(httpapi.NewWebhookHandler(paymentSvc, cfg.Payment.WebhookSecret), db),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
		if err := s.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	healthSrv.Shutdown()
	s.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	emitter.Close()
	logger.Info("Reservation Engine stopped. Goodbye!")
}
