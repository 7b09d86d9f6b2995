package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital-booking/config"
	deliveryHttp "hospital-booking/internal/delivery/http"
	"hospital-booking/internal/delivery/http/handler"
	"hospital-booking/internal/delivery/http/middleware"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/infrastructure/cache"
	"hospital-booking/internal/infrastructure/database"
	repoImpl "hospital-booking/internal/repository"
	"hospital-booking/internal/service"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/clock"
	"hospital-booking/pkg/jwt"
	"hospital-booking/pkg/mq"
	"hospital-booking/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Publisher   *mq.Publisher
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	log := setupLogger(cfg.Log)
	app.Log = log
	log.Info("Configuration loaded successfully")

	// Run migrations before opening the pool so the schema is in place
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(cfg.DB.URL(), log); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	// Availability cache is optional; without Redis every poll reads the store
	availabilityCache := cache.NewNoopAvailabilityCache()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis, log)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.RedisClient = redisClient
		availabilityCache = cache.NewRedisAvailabilityCache(redisClient, cfg.Booking.AvailabilityCacheTTL)
		log.Info("Redis connected successfully")
	}

	clk := clock.NewRealClock()

	// Booking events go to RabbitMQ when configured, otherwise to the log
	notifier := service.NewLogBookingNotifier(log)
	if cfg.Rabbit.URL != "" {
		publisher, err := mq.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		app.Publisher = publisher
		notifier = service.NewMQBookingNotifier(publisher, clk, log)
		log.Infof("Publishing booking events to exchange %s", cfg.Rabbit.Exchange)
	}

	// Initialize all layers
	server, err := initializeServer(cfg, log, clk, db, availabilityCache, notifier)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Server = server

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.LogConfig) *logrus.Logger {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return logrus.StandardLogger()
}

// initializeServer creates and configures the HTTP server
func initializeServer(
	cfg *config.Config,
	log *logrus.Logger,
	clk clock.Clock,
	db *gorm.DB,
	availabilityCache repository.AvailabilityCache,
	notifier service.BookingNotifier,
) (*http.Server, error) {
	strategy, err := repoImpl.ParseClaimStrategy(cfg.Booking.ClaimStrategy)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_CLAIM_STRATEGY: %w", err)
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	auditLogRepo := repoImpl.NewAuditLogRepository()
	reservationStore := repoImpl.NewReservationStore(db, log, clk, auditLogRepo, repoImpl.ReservationStoreConfig{
		Strategy:    strategy,
		LockTimeout: cfg.Booking.LockTimeout,
		MaxRetries:  cfg.Booking.ClaimMaxRetries,
	})

	// Initialize services
	gate := service.NewValidationGate(cfg.Booking, clk, customValidator)
	refs := service.NewBookingReferenceGenerator(cfg.Booking.Location)

	// Initialize usecases
	manager := usecase.NewReservationManager(reservationStore, availabilityCache, gate, refs, clk, log, cfg.Booking.ClaimTimeout)
	staleness := usecase.NewStalenessNotifier(reservationStore, availabilityCache, gate, clk, log, cfg.Booking.PollInterval)
	bookingUsecase := usecase.NewBookingUsecase(log, clk, reservationStore, gate, manager, staleness, notifier)
	adminReservationUsecase := usecase.NewAdminReservationUsecase(db, log, reservationStore, auditLogRepo, gate, manager, notifier)

	// Initialize handlers
	bookingHandler := handler.NewBookingHandler(bookingUsecase)
	adminReservationHandler := handler.NewAdminReservationHandler(adminReservationUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	// Initialize router
	router := deliveryHttp.NewRouter(log, bookingHandler, adminReservationHandler, authMiddleware, cfg.App.CORSOrigins)

	log.WithFields(logrus.Fields{
		"claim_strategy": strategy,
		"lead_time":      cfg.Booking.LeadTime.String(),
		"timezone":       cfg.Booking.Location.String(),
	}).Info("Slot reservation engine configured")

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// In-flight claims finish or time out before connections close
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, broker)
func (app *App) Close() {
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}

	if app.Publisher != nil {
		app.Publisher.Close()
	}
}
