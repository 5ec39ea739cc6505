package events

import (
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupEventRoutes(router *gin.RouterGroup, controller Controller) {
	events := router.Group("/events")
	{
		events.GET("", controller.GetAllEvents)      // GET /api/events
		events.GET("/:eventId", controller.GetEvent) // GET /api/events/:eventId

		admin := events.Group("")
		admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
		{
			admin.POST("", controller.CreateEvent)            // POST /api/events
			admin.PUT("/:eventId", controller.UpdateEvent)    // PUT /api/events/:eventId
			admin.DELETE("/:eventId", controller.DeleteEvent) // DELETE /api/events/:eventId
		}
	}
}
