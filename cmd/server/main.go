// Package main is the entry point for the HR Assistant API
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/hrassistapi/internal/api"
	"github.com/nsvirk/hrassistapi/internal/api/middleware"
	"github.com/nsvirk/hrassistapi/internal/config"
	"github.com/nsvirk/hrassistapi/internal/repository"
	"github.com/nsvirk/hrassistapi/internal/service"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Connect to Postgres when any store lives there
	var db *gorm.DB
	if cfg.Storage == config.StoragePostgres || cfg.SessionStore() == config.StoragePostgres {
		db, err = repository.ConnectPostgres(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		// Init logger
		if err := zaplogger.InitLogger(db); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		zaplogger.Info("Postgres initialized")
	}

	// Connect Redis
	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = repository.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		zaplogger.Info("Redis initialized")
	}

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)

	// Repositories
	var (
		metricRepo     repository.MetricRepository
		rememberMeRepo repository.RememberMeRepository
		sessionRepo    repository.SessionRepository
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		metricRepo = repository.NewPostgresMetricRepository(db)
		rememberMeRepo = repository.NewPostgresRememberMeRepository(db)
	default:
		metricRepo = repository.NewMemoryMetricRepository()
		rememberMeRepo = repository.NewMemoryRememberMeRepository()
	}
	switch cfg.SessionStore() {
	case config.StoragePostgres:
		sessionRepo = repository.NewPostgresSessionRepository(db)
	case config.StorageRedis:
		sessionRepo = repository.NewRedisSessionRepository(redisClient)
	default:
		sessionRepo = repository.NewMemorySessionRepository()
	}
	zaplogger.Info("Storage initialized", zaplogger.Fields{
		"storage":  cfg.Storage,
		"sessions": cfg.SessionStore(),
	})

	// Services
	authenticator, err := service.NewStaticAuthenticator(cfg.Users)
	if err != nil {
		log.Fatalf("Failed to load users: %v", err)
	}
	if cfg.Users == "" {
		zaplogger.Warn("HR_API_USERS is empty, every login will be refused")
	}

	sessionService := service.NewSessionService(sessionRepo, cfg.SessionTTL())
	metricsService := service.NewMetricsService(metricRepo).WithPublisher(redisClient, cfg.RedisMetricsChannel)
	rememberMeService := service.NewRememberMeService(rememberMeRepo)
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.AuthTTL(), cfg.APIName)
	authService := service.NewAuthService(authenticator, tokenService, rememberMeService)
	flowService := service.NewFlowService(sessionService, metricsService, service.MenuResponder{},
		service.NewLinkDocumentGenerator(cfg.DocumentBaseURL))
	cronService := service.NewCronService(cfg.SweepSchedule, sessionService, metricsService, rememberMeService,
		cfg.MetricsRetention(), cfg.RememberMeIdle())

	// startUpMessage
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, api.Services{
		APIName:       cfg.APIName,
		APIVersion:    cfg.APIVersion,
		SecureCookies: cfg.SecureCookies(),
		Auth:          authService,
		Flows:         flowService,
		Metrics:       metricsService,
		Cron:          cronService,
	})

	// start cron jobs
	cronService.Start()

	// Start the server
	startServer(e, cfg)

	cronService.Stop()
	metricsService.Wait()
	zaplogger.Info("SERVER STOPPED")
}

// startServer runs the Echo server until SIGINT or SIGTERM
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3007"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zaplogger.Info("SERVER STARTED ON PORT " + port)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zaplogger.Fatal("SERVER FAILED", zaplogger.Fields{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	zaplogger.Info("SHUTTING DOWN SERVER")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zaplogger.Error("SERVER SHUTDOWN FAILED", zaplogger.Fields{"error": err.Error()})
	}
}
