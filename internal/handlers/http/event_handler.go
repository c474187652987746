package http

import (
	"net/http"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	apperrors "relaycast/pkg/errors"
	"relaycast/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	broadcasts ports.EventBroadcastService
	logger     *zap.SugaredLogger
}

var _ ports.EventHTTPHandler = (*EventHandler)(nil)

func NewEventHandler(broadcasts ports.EventBroadcastService, logger *zap.SugaredLogger) *EventHandler {
	return &EventHandler{
		broadcasts: broadcasts,
		logger:     logger,
	}
}

func (h *EventHandler) StartBroadcast(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	result, err := h.broadcasts.Start(c.Request.Context(), eventID)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	status := http.StatusOK
	if result.Started != nil {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"broadcast": newEnsureResponse(result)})
}

func (h *EventHandler) StopBroadcast(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	report, err := h.broadcasts.Stop(c.Request.Context(), eventID)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	if len(report.Failures) > 0 {
		h.logger.Warnw("some broadcasts could not be stopped",
			"event_id", eventID,
			"failures", len(report.Failures),
		)
	}
	c.JSON(http.StatusOK, gin.H{"broadcast": newStopResponse(report)})
}

func eventIDParam(c *gin.Context) (domain.EventID, bool) {
	id := c.Param("id")
	if err := validation.ValidateRecordID(id, "event id"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return "", false
	}
	return domain.EventID(id), true
}
