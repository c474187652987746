package http

import (
	"context"
	"net/http"
	"testing"

	"relaycast/internal/core/domain"
	"relaycast/internal/infrastructure/middleware"
	"relaycast/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

const testSecret = "s3cret"

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Reconcile(ctx context.Context, record *domain.LayoutIntentRecord) *domain.ReconcileOutcome {
	args := m.Called(ctx, record)
	return args.Get(0).(*domain.ReconcileOutcome)
}

type MockLayoutService struct {
	mock.Mock
}

func (m *MockLayoutService) Submit(ctx context.Context, eventSessionID domain.EventSessionID, intent domain.LayoutIntent) (*domain.LayoutIntentRecord, *domain.ReconcileOutcome, error) {
	args := m.Called(ctx, eventSessionID, intent)
	record, _ := args.Get(0).(*domain.LayoutIntentRecord)
	outcome, _ := args.Get(1).(*domain.ReconcileOutcome)
	return record, outcome, args.Error(2)
}

func (m *MockLayoutService) Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error) {
	args := m.Called(ctx, eventSessionID)
	record, _ := args.Get(0).(*domain.LayoutIntentRecord)
	return record, args.Error(1)
}

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) PruneInvalid(ctx context.Context, sessionID domain.SessionID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockReconciler) RecordStream(ctx context.Context, sessionID domain.SessionID, registrantID domain.RegistrantID, stream domain.Stream) error {
	return m.Called(ctx, sessionID, registrantID, stream).Error(0)
}

func (m *MockReconciler) RemoveStream(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID, streamID domain.StreamID) error {
	return m.Called(ctx, sessionID, connectionID, streamID).Error(0)
}

func (m *MockReconciler) Disconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	return m.Called(ctx, sessionID, connectionID).Error(0)
}

type MockEventBroadcastService struct {
	mock.Mock
}

func (m *MockEventBroadcastService) Details(ctx context.Context, eventID domain.EventID) (*domain.EventBroadcastDetails, error) {
	args := m.Called(ctx, eventID)
	details, _ := args.Get(0).(*domain.EventBroadcastDetails)
	return details, args.Error(1)
}

func (m *MockEventBroadcastService) Start(ctx context.Context, eventID domain.EventID) (*domain.EnsureResult, error) {
	args := m.Called(ctx, eventID)
	result, _ := args.Get(0).(*domain.EnsureResult)
	return result, args.Error(1)
}

func (m *MockEventBroadcastService) Stop(ctx context.Context, eventID domain.EventID) (*domain.StopReport, error) {
	args := m.Called(ctx, eventID)
	report, _ := args.Get(0).(*domain.StopReport)
	return report, args.Error(1)
}

type MockConfigurationService struct {
	mock.Mock
}

func (m *MockConfigurationService) SaveEventSession(ctx context.Context, session *domain.EventSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockConfigurationService) SaveChannelStack(ctx context.Context, stack *domain.ChannelStack) error {
	return m.Called(ctx, stack).Error(0)
}

type testServer struct {
	router       *gin.Engine
	clock        *clockwork.FakeClock
	orchestrator *MockOrchestrator
	layouts      *MockLayoutService
	reconciler   *MockReconciler
	events       *MockEventBroadcastService
	config       *MockConfigurationService
	checker      *monitoring.HealthChecker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t).Sugar()

	ts := &testServer{
		router:       gin.New(),
		clock:        clockwork.NewFakeClock(),
		orchestrator: &MockOrchestrator{},
		layouts:      &MockLayoutService{},
		reconciler:   &MockReconciler{},
		events:       &MockEventBroadcastService{},
		config:       &MockConfigurationService{},
	}
	ts.checker = monitoring.NewHealthChecker(ts.clock)

	ts.router.Use(middleware.ErrorHandlerMiddleware(logger))
	SetupRoutes(ts.router, Routes{
		Layouts:        NewLayoutHandler(ts.layouts, ts.orchestrator, ts.clock, logger),
		SessionMonitor: NewSessionMonitorHandler(ts.reconciler, logger),
		Events:         NewEventHandler(ts.events, logger),
		Configuration:  NewConfigurationHandler(ts.config, logger),
		Health:         NewHealthHandler(ts.checker, ts.clock),
		EventSecret:    testSecret,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("relaycast_up 1\n"))
		}),
	})

	t.Cleanup(func() {
		ts.orchestrator.AssertExpectations(t)
		ts.layouts.AssertExpectations(t)
		ts.reconciler.AssertExpectations(t)
		ts.events.AssertExpectations(t)
		ts.config.AssertExpectations(t)
	})
	return ts
}
