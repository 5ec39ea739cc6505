package tickets

import (
	"ticketly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller) {
	tickets := rg.Group("/tickets")
	tickets.Use(middleware.JWTAuth(), middleware.RequireRoles("USER", "ADMIN"))
	{
		tickets.POST("", controller.Purchase)                          // POST /api/tickets
		tickets.GET("/:userId", controller.GetUserTickets)             // GET /api/tickets/:userId
		tickets.GET("/:userId/:ticketId", controller.GetUserTicket)    // GET /api/tickets/:userId/:ticketId
		tickets.GET("/:userId/:ticketId/qrcode", controller.GetQRCode) // GET /api/tickets/:userId/:ticketId/qrcode
	}
}
