package seats

import (
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller) {

	// PUBLIC SEAT MAP

	events := rg.Group("/events/:eventId")
	{
		events.GET("/seats", controller.GetSeatLayout)                    // GET /api/events/:eventId/seats
		events.POST("/seats/availability", controller.CheckAvailability)  // POST /api/events/:eventId/seats/availability
		events.POST("/holds", middleware.JWTAuth(), controller.HoldSeats) // POST /api/events/:eventId/holds
	}

	// HOLDS

	holds := rg.Group("/holds")
	holds.Use(middleware.JWTAuth(), middleware.RequireRoles("USER", "ADMIN"))
	{
		holds.GET("", controller.GetUserHolds)           // GET /api/holds
		holds.GET("/:holdId", controller.GetHold)        // GET /api/holds/:holdId
		holds.DELETE("/:holdId", controller.ReleaseHold) // DELETE /api/holds/:holdId
	}
}
