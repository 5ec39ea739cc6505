package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketly/api/routes"
	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/pkg/logger"
	"ticketly/pkg/metrics"
	"ticketly/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// @title						Ticketly API
// @version					1.0
// @description				Event seat selection and ticket checkout.
// @BasePath					/api
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	gin.SetMode(cfg.GinMode)

	if err := registerValidators(); err != nil {
		appLogger.Error("failed to register validators", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis Lua scripts for atomic seat holds
	holdRepo := seats.NewHoldRepository(db.Redis)
	preloadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := holdRepo.PreloadScripts(preloadCtx); err != nil {
		// scripts are loaded on first use
		appLogger.Error("Failed to preload Redis Lua scripts", slog.Any("error", err))
	} else {
		appLogger.Info("✅ Redis Lua scripts preloaded for atomic seat operations")
	}
	cancel()

	producer := newProducer(cfg, appLogger)
	defer func() {
		if err := producer.Close(); err != nil {
			appLogger.Error("Error closing ticket producer", slog.Any("error", err))
		}
	}()

	appRouter := routes.NewRouter(cfg, db, producer)
	services := appRouter.Services()

	// Analytics consumes ticket events
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	if cfg.Kafka.Enabled {
		consumer, err := notifications.NewKafkaTicketConsumer(
			notifications.DefaultConsumerConfig(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroupID, cfg.Kafka.TicketTopic),
			services.Analytics,
		)
		if err != nil {
			appLogger.Error("Failed to initialize ticket consumer", slog.Any("error", err))
			appLogger.Info("Continuing without ticket consumer - analytics will not be aggregated")
		} else {
			if err := consumer.StartConsumers(consumerCtx, cfg.Kafka.ConsumerWorkers); err != nil {
				appLogger.Error("Failed to start ticket consumer", slog.Any("error", err))
			}
			defer func() {
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping ticket consumer", slog.Any("error", err))
				}
			}()
		}
	}

	if cfg.Scheduler.Enabled {
		scheduler, err := events.StartScheduler(services.Events, cfg.Scheduler)
		if err != nil {
			appLogger.Error("Failed to start event scheduler", slog.Any("error", err))
		} else {
			defer func() {
				if err := scheduler.Shutdown(); err != nil {
					appLogger.Error("Error stopping event scheduler", slog.Any("error", err))
				}
			}()
		}
	}

	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.Redis, ratelimit.NewConfig(cfg.RateLimit))
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
			slog.Int("checkout_requests", cfg.RateLimit.CheckoutRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router := setupRouter(cfg, appRouter, rateLimiter)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("swagger", fmt.Sprintf("http://localhost:%s/swagger/index.html", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("built", BuildTime),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func registerValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := seats.RegisterValidators(v); err != nil {
		return err
	}
	return payments.RegisterValidators(v)
}

func newProducer(cfg *config.Config, appLogger *logger.Logger) notifications.TicketEventProducer {
	if !cfg.Kafka.Enabled {
		appLogger.Info("Kafka disabled, ticket events will not be published")
		return notifications.NoopProducer{}
	}

	producer, err := notifications.NewKafkaTicketProducer(
		notifications.DefaultKafkaProducerConfig(cfg.Kafka.Brokers, cfg.Kafka.TicketTopic),
	)
	if err != nil {
		appLogger.Error("Failed to initialize ticket producer", slog.Any("error", err))
		return notifications.NoopProducer{}
	}
	appLogger.Info("✅ Ticket event producer connected", slog.Any("brokers", cfg.Kafka.Brokers))
	return producer
}

func setupRouter(cfg *config.Config, appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())
	if cfg.MetricsEnabled {
		engine.Use(metrics.Middleware())
	}

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	engine.Use(cors.New(corsConfig))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.LogHTTPRequest(c, time.Since(start))
	}
}
