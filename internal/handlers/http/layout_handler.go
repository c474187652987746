package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	apperrors "relaycast/pkg/errors"
	"relaycast/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// layoutCreatedPayload is the database event fired when a layout row is inserted.
type layoutCreatedPayload struct {
	Event struct {
		Op   string `json:"op"`
		Data struct {
			New *layoutRow `json:"new"`
		} `json:"data"`
	} `json:"event"`
}

type layoutRow struct {
	ID                   string          `json:"id"`
	EventVonageSessionID string          `json:"eventVonageSessionId"`
	LayoutData           json.RawMessage `json:"layoutData"`
	CreatedAt            time.Time       `json:"created_at"`
}

type LayoutHandler struct {
	layouts      ports.LayoutService
	orchestrator ports.Orchestrator
	clock        clockwork.Clock
	logger       *zap.SugaredLogger
}

var _ ports.LayoutHTTPHandler = (*LayoutHandler)(nil)

func NewLayoutHandler(
	layouts ports.LayoutService,
	orchestrator ports.Orchestrator,
	clock clockwork.Clock,
	logger *zap.SugaredLogger,
) *LayoutHandler {
	return &LayoutHandler{
		layouts:      layouts,
		orchestrator: orchestrator,
		clock:        clock,
		logger:       logger,
	}
}

// HandleLayoutCreated reconciles a layout row delivered by the database trigger.
func (h *LayoutHandler) HandleLayoutCreated(c *gin.Context) {
	var payload layoutCreatedPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("unexpected payload"))
		return
	}

	row := payload.Event.Data.New
	if row == nil || row.ID == "" || row.EventVonageSessionID == "" {
		_ = c.Error(apperrors.NewInvalidInputError("payload has no new row"))
		return
	}

	if isJSONNull(row.LayoutData) {
		h.logger.Infow("layout row has no layout data, ignoring",
			"intent_id", row.ID,
			"event_session_id", row.EventVonageSessionID,
		)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	intent, err := domain.ParseLayoutData(row.LayoutData)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	createdAt := row.CreatedAt
	if createdAt.IsZero() {
		createdAt = h.clock.Now()
	}
	record := &domain.LayoutIntentRecord{
		ID:             domain.LayoutID(row.ID),
		EventSessionID: domain.EventSessionID(row.EventVonageSessionID),
		Intent:         intent,
		CreatedAt:      createdAt,
	}

	writeOutcome(c, http.StatusOK, h.orchestrator.Reconcile(c.Request.Context(), record))
}

// SubmitLayout stores a new intent for the event session and reconciles it.
func (h *LayoutHandler) SubmitLayout(c *gin.Context) {
	eventSessionID := c.Param("id")
	if err := validation.ValidateProviderID(eventSessionID, "event session id"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("unreadable body"))
		return
	}
	intent, err := domain.ParseLayoutData(raw)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	record, outcome, err := h.layouts.Submit(c.Request.Context(), domain.EventSessionID(eventSessionID), intent)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	layout, err := newLayoutResponse(record)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	status := http.StatusCreated
	if outcome.State != domain.ReconcileDone {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"layout":  layout,
		"outcome": newOutcomeResponse(outcome),
	})
}

func (h *LayoutHandler) GetLatestLayout(c *gin.Context) {
	eventSessionID := c.Param("id")
	if err := validation.ValidateProviderID(eventSessionID, "event session id"); err != nil {
		_ = c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	record, err := h.layouts.Latest(c.Request.Context(), domain.EventSessionID(eventSessionID))
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}

	layout, err := newLayoutResponse(record)
	if err != nil {
		_ = c.Error(toAppError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"layout": layout})
}

// writeOutcome answers with okStatus when the reconciliation finished and 500 otherwise.
func writeOutcome(c *gin.Context, okStatus int, outcome *domain.ReconcileOutcome) {
	status := okStatus
	if outcome.State != domain.ReconcileDone {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"outcome": newOutcomeResponse(outcome)})
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
