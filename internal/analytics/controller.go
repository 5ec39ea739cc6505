package analytics

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ticketly/internal/shared/utils/response"
)

type Controller interface {
	GetEventAnalytics(c *gin.Context)
	GetOverview(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// GetEventAnalytics godoc
// @Summary Sales analytics of one event
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param eventId path string true "event id"
// @Success 200 {object} response.StandardApiResponse
// @Router /analytics/events/{eventId} [get]
func (ctrl *controller) GetEventAnalytics(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.RespondJSON(c, "error", http.StatusBadRequest, "Invalid event ID", nil, err.Error())
		return
	}

	analytics, err := ctrl.service.GetEventAnalytics(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			response.RespondJSON(c, "error", http.StatusNotFound, "Event not found", nil, nil)
			return
		}
		response.RespondJSON(c, "error", http.StatusInternalServerError, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Event analytics retrieved successfully", analytics, nil)
}

func (ctrl *controller) GetOverview(c *gin.Context) {
	overview, err := ctrl.service.GetOverview(c.Request.Context())
	if err != nil {
		response.RespondJSON(c, "error", http.StatusInternalServerError, err.Error(), nil, nil)
		return
	}

	response.RespondJSON(c, "success", http.StatusOK, "Analytics overview retrieved successfully", overview, nil)
}
