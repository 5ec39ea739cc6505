package analytics

import (
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupAnalyticsRoutes(rg *gin.RouterGroup, controller Controller) {
	admin := rg.Group("/analytics")
	admin.Use(middleware.JWTAuth())
	admin.Use(middleware.RequireAdmin())

	admin.GET("/overview", controller.GetOverview)              // GET /api/analytics/overview
	admin.GET("/events/:eventId", controller.GetEventAnalytics) // GET /api/analytics/events/:eventId
}
