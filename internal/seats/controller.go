package seats

import (
	"errors"
	"net/http"

	"ticketly/internal/shared/middleware"
	"ticketly/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// SEAT MAP

func (c *Controller) GetSeatLayout(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	layout, err := c.service.GetSeatLayout(ctx.Request.Context(), eventID)
	if err != nil {
		c.respondError(ctx, "Failed to get seat map", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", layout, nil)
}

func (c *Controller) CheckAvailability(ctx *gin.Context) {
	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	var req SeatAvailabilityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	availability, err := c.service.CheckAvailability(ctx.Request.Context(), eventID, req.Seats)
	if err != nil {
		c.respondError(ctx, "Failed to check availability", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat availability checked successfully", availability, nil)
}

//  SEAT HOLDING

func (c *Controller) HoldSeats(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	eventID, err := uuid.Parse(ctx.Param("eventId"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	var req SeatHoldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, err.Error())
		return
	}

	hold, err := c.service.HoldSeats(ctx.Request.Context(), userID, eventID, req.Seats)
	if err != nil {
		c.respondError(ctx, "Failed to hold seats", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats held successfully", hold, nil)
}

func (c *Controller) ReleaseHold(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	if err := c.service.ReleaseHold(ctx.Request.Context(), ctx.Param("holdId"), userID); err != nil {
		c.respondError(ctx, "Failed to release hold", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold released successfully", nil, nil)
}

func (c *Controller) GetHold(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	hold, err := c.service.GetHold(ctx.Request.Context(), ctx.Param("holdId"), userID)
	if err != nil {
		c.respondError(ctx, "Failed to get hold", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Hold retrieved successfully", hold, nil)
}

func (c *Controller) GetUserHolds(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	holds, err := c.service.GetUserHolds(ctx.Request.Context(), userID)
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to get user holds", nil, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User holds retrieved successfully", holds, nil)
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		response.RespondJSON(ctx, "error", http.StatusConflict, conflict.Reason.Error(), nil, gin.H{"conflicts": conflict.Seats})
	case errors.Is(err, ErrEventNotFound), errors.Is(err, ErrHoldNotFound):
		response.RespondJSON(ctx, "error", http.StatusNotFound, message, nil, err.Error())
	case errors.Is(err, ErrHoldForbidden):
		response.RespondJSON(ctx, "error", http.StatusForbidden, message, nil, err.Error())
	case errors.Is(err, ErrInvalidSeatKey), errors.Is(err, ErrSeatNotFound),
		errors.Is(err, ErrDuplicateSeat), errors.Is(err, ErrNoSeats), errors.Is(err, ErrTooManySeats):
		response.RespondJSON(ctx, "error", http.StatusBadRequest, message, nil, err.Error())
	case errors.Is(err, ErrEventNotBookable):
		response.RespondJSON(ctx, "error", http.StatusUnprocessableEntity, message, nil, err.Error())
	default:
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, message, nil, err.Error())
	}
}
