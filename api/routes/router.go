// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"ticketly/docs"
	"ticketly/internal/analytics"
	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/shared/database"
	"ticketly/internal/tickets"
	"ticketly/pkg/cache"
	"ticketly/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Services are the domain services shared between the HTTP routes and
// the background workers started by main.
type Services struct {
	Auth      auth.Service
	Events    events.Service
	Seats     seats.Service
	Tickets   tickets.Service
	Analytics analytics.Service
}

// Router holds all route dependencies
type Router struct {
	config   *config.Config
	db       *database.DB
	services *Services
}

// NewRouter wires repositories and services. producer receives ticket
// events after each checkout.
func NewRouter(cfg *config.Config, db *database.DB, producer notifications.TicketEventProducer) *Router {
	r := &Router{
		config: cfg,
		db:     db,
	}
	r.services = r.buildServices(producer)
	return r
}

// Services exposes the wired services.
func (r *Router) Services() *Services {
	return r.services
}

func (r *Router) buildServices(producer notifications.TicketEventProducer) *Services {
	pg := r.db.PostgreSQL
	cacheService := cache.NewService(r.db.Redis)

	authRepo := auth.NewRepository(pg)
	authService := auth.NewService(authRepo, r.config)

	eventService := events.NewService(events.NewRepository(pg), cacheService)

	seatService := seats.NewService(seats.NewHoldRepository(r.db.Redis), eventService, r.config)

	ticketService := tickets.NewService(
		tickets.NewRepository(pg),
		payments.NewSimulatedProcessor(),
		r.config.Booking,
		tickets.WithHoldService(seatService),
		tickets.WithEventCache(eventService),
		tickets.WithCacheService(cacheService),
		tickets.WithProducer(producer),
		tickets.WithUserDirectory(auth.NewUserDirectory(authRepo)),
	)

	analyticsService := analytics.NewService(analytics.NewRepository(pg), cacheService)

	return &Services{
		Auth:      authService,
		Events:    eventService,
		Seats:     seatService,
		Tickets:   ticketService,
		Analytics: analyticsService,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	if r.config.MetricsEnabled {
		engine.GET("/metrics", metrics.Handler())
	}

	docs.SwaggerInfo.BasePath = r.config.GetAPIBasePath()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(r.config.GetAPIBasePath())
	{
		auth.NewRouter(auth.NewController(r.services.Auth), r.config).SetupRoutes(api)
		events.SetupEventRoutes(api, events.NewController(r.services.Events))
		seats.SetupSeatRoutes(api, seats.NewController(r.services.Seats))
		tickets.SetupTicketRoutes(api, tickets.NewController(r.services.Tickets))
		analytics.SetupAnalyticsRoutes(api, analytics.NewController(r.services.Analytics))
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "ticketly-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "ticketly-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
