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

// ConfigurationHandler lets the event scheduler seed the rows reconciliation
// resolves events and sessions through.
type ConfigurationHandler struct {
	config ports.ConfigurationService
	logger *zap.SugaredLogger
}

var _ ports.ConfigurationHTTPHandler = (*ConfigurationHandler)(nil)

func NewConfigurationHandler(config ports.ConfigurationService, logger *zap.SugaredLogger) *ConfigurationHandler {
	return &ConfigurationHandler{
		config: config,
		logger: logger,
	}
}

type eventSessionRequest struct {
	EventID      string `json:"eventId" binding:"required"`
	ConferenceID string `json:"conferenceId"`
	SessionID    string `json:"vonageSessionId"`
	RTMPInput    string `json:"rtmpInput"`
}

type channelStackRequest struct {
	RTMPAInputURI string `json:"rtmpAInputUri" binding:"required"`
	RTMPBInputURI string `json:"rtmpBInputUri"`
}

func (h *ConfigurationHandler) PutEventSession(c *gin.Context) {
	id := c.Param("id")
	if err := validation.ValidateRecordID(id, "event session id"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	var req eventSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("invalid event session body: " + err.Error()))
		return
	}

	session := &domain.EventSession{
		ID:           domain.EventSessionID(id),
		EventID:      domain.EventID(req.EventID),
		ConferenceID: domain.ConferenceID(req.ConferenceID),
		SessionID:    domain.SessionID(req.SessionID),
		RTMPInput:    domain.RTMPInput(req.RTMPInput),
	}
	if err := h.config.SaveEventSession(c.Request.Context(), session); err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"event_session": gin.H{
		"id":                session.ID,
		"event_id":          session.EventID,
		"conference_id":     session.ConferenceID,
		"vonage_session_id": session.SessionID,
		"rtmp_input":        session.RTMPInput,
	}})
}

func (h *ConfigurationHandler) PutChannelStack(c *gin.Context) {
	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	var req channelStackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("invalid channel stack body: " + err.Error()))
		return
	}

	stack := &domain.ChannelStack{
		EventID:       eventID,
		RTMPAInputURI: req.RTMPAInputURI,
		RTMPBInputURI: req.RTMPBInputURI,
	}
	if err := h.config.SaveChannelStack(c.Request.Context(), stack); err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"channel_stack": gin.H{
		"event_id":         stack.EventID,
		"has_rtmp_input_b": stack.RTMPBInputURI != "",
	}})
}
