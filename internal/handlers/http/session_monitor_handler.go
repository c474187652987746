package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	apperrors "relaycast/pkg/errors"
	"relaycast/pkg/utils"
	"relaycast/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	monitorEventStreamCreated   = "streamCreated"
	monitorEventStreamDestroyed = "streamDestroyed"
)

// monitorCallback is the provider's session monitoring callback body.
type monitorCallback struct {
	SessionID string `json:"sessionId"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Stream    *struct {
		ID         string             `json:"id"`
		Name       string             `json:"name"`
		VideoType  string             `json:"videoType"`
		Connection *monitorConnection `json:"connection"`
	} `json:"stream"`
	Connection *monitorConnection `json:"connection"`
}

type monitorConnection struct {
	ID   string `json:"id"`
	Data string `json:"data"`
}

type SessionMonitorHandler struct {
	reconciler ports.ParticipantReconciler
	logger     *zap.SugaredLogger
}

var _ ports.SessionMonitorHTTPHandler = (*SessionMonitorHandler)(nil)

func NewSessionMonitorHandler(reconciler ports.ParticipantReconciler, logger *zap.SugaredLogger) *SessionMonitorHandler {
	return &SessionMonitorHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

// HandleSessionMonitoring mirrors stream lifecycle callbacks into participant records.
func (h *SessionMonitorHandler) HandleSessionMonitoring(c *gin.Context) {
	var cb monitorCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("unexpected callback payload"))
		return
	}

	switch cb.Event {
	case monitorEventStreamCreated, monitorEventStreamDestroyed:
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "event": cb.Event})
		return
	}

	if cb.SessionID == "" || cb.Stream == nil || cb.Stream.ID == "" {
		_ = c.Error(apperrors.NewInvalidInputError("callback has no session or stream"))
		return
	}
	conn := cb.Stream.Connection
	if conn == nil {
		conn = cb.Connection
	}
	if conn == nil || conn.ID == "" {
		_ = c.Error(apperrors.NewInvalidInputError("callback has no connection"))
		return
	}

	ctx := c.Request.Context()
	sessionID := domain.SessionID(cb.SessionID)
	connectionID := domain.ConnectionID(conn.ID)
	streamID := domain.StreamID(cb.Stream.ID)

	if cb.Event == monitorEventStreamDestroyed {
		if err := h.reconciler.RemoveStream(ctx, sessionID, connectionID, streamID); err != nil {
			_ = c.Error(toAppError(err))
			return
		}
		h.logger.Infow("participant stream removed",
			"session_id", sessionID,
			"connection_id", connectionID,
			"stream_id", streamID,
			"reason", cb.Reason,
		)
		c.JSON(http.StatusOK, gin.H{"status": "removed"})
		return
	}

	registrantID := registrantFromConnectionData(conn.Data)
	if registrantID == "" {
		_ = c.Error(apperrors.NewInvalidInputError("connection data carries no registrant id"))
		return
	}

	stream := domain.Stream{
		ID:           streamID,
		ConnectionID: connectionID,
		Kind:         domain.NormalizeStreamKind(domain.StreamKind(cb.Stream.VideoType)),
		Name:         utils.SanitizeString(cb.Stream.Name),
	}
	if err := h.reconciler.RecordStream(ctx, sessionID, registrantID, stream); err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// DisconnectParticipant force-disconnects a connection and drops its participant records.
func (h *SessionMonitorHandler) DisconnectParticipant(c *gin.Context) {
	sessionID := c.Param("sessionId")
	connectionID := c.Param("connectionId")
	if err := validation.ValidateProviderID(sessionID, "session id"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}
	if err := validation.ValidateProviderID(connectionID, "connection id"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	err := h.reconciler.Disconnect(c.Request.Context(), domain.SessionID(sessionID), domain.ConnectionID(connectionID))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

// registrantFromConnectionData reads {"registrantId": ...} and falls back to the raw token.
func registrantFromConnectionData(data string) domain.RegistrantID {
	data = strings.TrimSpace(data)
	if data == "" {
		return ""
	}
	var parsed struct {
		RegistrantID string `json:"registrantId"`
	}
	if strings.HasPrefix(data, "{") {
		if err := json.Unmarshal([]byte(data), &parsed); err == nil {
			return domain.RegistrantID(parsed.RegistrantID)
		}
	}
	return domain.RegistrantID(data)
}
