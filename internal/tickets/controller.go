package tickets

import (
	"errors"
	"net/http"
	"strings"

	"ticketly/internal/events"
	"ticketly/internal/payments"
	"ticketly/internal/seats"
	"ticketly/internal/shared/middleware"
	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idempotencyHeader = "Idempotency-Key"

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// Purchase godoc
// @Summary Buy tickets
// @Description Books the selected seats in one transaction. Replays with the same Idempotency-Key return the first ticket.
// @Tags tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "idempotency key"
// @Param body body PurchaseRequest true "checkout"
// @Success 201 {object} response.StandardApiResponse
// @Failure 409 {object} response.StandardApiResponse
// @Failure 422 {object} response.StandardApiResponse
// @Router /tickets [post]
func (c *Controller) Purchase(ctx *gin.Context) {
	actorID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req PurchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if key := strings.TrimSpace(ctx.GetHeader(idempotencyHeader)); key != "" {
		req.IdempotencyKey = key
	}

	ticket, err := c.service.Purchase(ctx.Request.Context(), actorID, middleware.IsAdmin(ctx), req)
	if err != nil {
		c.respondError(ctx, "Failed to buy tickets", err)
		return
	}

	if ticket.Replayed {
		response.RespondJSON(ctx, "success", http.StatusOK, "ticket checkout completed!!", ticket, nil)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "ticket checkout completed!!", ticket, nil)
}

// GetUserTickets godoc
// @Summary List a user's tickets
// @Tags tickets
// @Produce json
// @Security BearerAuth
// @Param userId path string true "user id"
// @Param eventId query string false "event filter"
// @Param ticketType query string false "tier filter"
// @Param q query string false "reference or seat key"
// @Success 200 {object} response.StandardApiResponse
// @Router /tickets/{userId} [get]
func (c *Controller) GetUserTickets(ctx *gin.Context) {
	userID, ok := c.authorizedUser(ctx)
	if !ok {
		return
	}

	var query TicketListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := c.service.GetUserTickets(ctx.Request.Context(), userID, query)
	if err != nil {
		c.respondError(ctx, "Failed to get tickets", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "get user tickets completed!!", result, nil)
}

func (c *Controller) GetUserTicket(ctx *gin.Context) {
	userID, ok := c.authorizedUser(ctx)
	if !ok {
		return
	}
	ticketID, err := uuid.Parse(ctx.Param("ticketId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ticket ID", nil, err.Error())
		return
	}

	ticket, err := c.service.GetUserTicket(ctx.Request.Context(), userID, ticketID)
	if err != nil {
		c.respondError(ctx, "Failed to get ticket", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Ticket retrieved successfully", ticket, nil)
}

// GetQRCode godoc
// @Summary Ticket QR code
// @Tags tickets
// @Produce png
// @Security BearerAuth
// @Param userId path string true "user id"
// @Param ticketId path string true "ticket id"
// @Param size query int false "pixels, 128-1024"
// @Success 200 {file} binary
// @Router /tickets/{userId}/{ticketId}/qrcode [get]
func (c *Controller) GetQRCode(ctx *gin.Context) {
	userID, ok := c.authorizedUser(ctx)
	if !ok {
		return
	}
	ticketID, err := uuid.Parse(ctx.Param("ticketId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ticket ID", nil, err.Error())
		return
	}

	var query QRCodeQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	png, err := c.service.QRCode(ctx.Request.Context(), userID, ticketID, query.Size)
	if err != nil {
		c.respondError(ctx, "Failed to render QR code", err)
		return
	}

	ctx.Data(http.StatusOK, "image/png", png)
}

// authorizedUser parses :userId and checks the caller may read it.
func (c *Controller) authorizedUser(ctx *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid user ID", nil, err.Error())
		return uuid.Nil, false
	}
	if !middleware.CanAccessUser(ctx, userID) {
		response.RespondJSON(ctx, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		return uuid.Nil, false
	}
	return userID, true
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	var conflict *seats.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.RespondJSON(ctx, "error", http.StatusConflict, "seat conflict", nil, gin.H{
			"reason":    conflict.Reason.Error(),
			"conflicts": conflict.Seats,
		})
	case errors.Is(err, ErrTicketNotFound):
		response.RespondJSON(ctx, "error", http.StatusNotFound, "ticket not found", nil, nil)
	case errors.Is(err, events.ErrEventNotFound):
		response.RespondJSON(ctx, "error", http.StatusNotFound, "Event not found", nil, nil)
	case errors.Is(err, ErrForbidden):
		response.RespondJSON(ctx, "error", http.StatusForbidden, message, nil, err.Error())
	case errors.Is(err, ErrInvalidHold), errors.Is(err, ErrConcurrentUpdate):
		response.RespondJSON(ctx, "error", http.StatusConflict, message, nil, err.Error())
	case errors.Is(err, ErrPriceMismatch), errors.Is(err, seats.ErrEventNotBookable):
		response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, message, nil, err.Error())
	case errors.Is(err, payments.ErrPaymentDeclined):
		response.RespondJSON(ctx, "error", http.StatusPaymentRequired, message, nil, err.Error())
	case errors.Is(err, ErrQuantityMismatch), errors.Is(err, seats.ErrTierNotOfferedHere),
		errors.Is(err, seats.ErrInvalidSeatKey), errors.Is(err, seats.ErrSeatNotFound), errors.Is(err, seats.ErrDuplicateSeat),
		errors.Is(err, seats.ErrNoSeats), errors.Is(err, seats.ErrTooManySeats),
		errors.Is(err, payments.ErrInvalidMethod), errors.Is(err, payments.ErrMissingCardName),
		errors.Is(err, payments.ErrInvalidCardNumber), errors.Is(err, payments.ErrInvalidExpiry), errors.Is(err, payments.ErrInvalidCVC):
		response.RespondJSON(ctx, "error", http.StatusBadRequest, message, nil, err.Error())
	default:
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, message, nil, err.Error())
	}
}
