package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

// fakeProvider is an in-memory provider that applies mutations to its own state.
type fakeProvider struct {
	mu sync.Mutex

	streams    map[domain.SessionID][]domain.Stream
	broadcasts []domain.Broadcast
	nextID     int

	classCalls  [][]domain.StreamClassMutation
	layoutCalls map[domain.BroadcastID]domain.Algorithm
	starts      []domain.StartBroadcastRequest
	stops       []domain.BroadcastID
	signals     []domain.Signal
	disconnects []domain.ConnectionID

	listStreamsErr    error
	listBroadcastsErr error
	setClassesErr     error
	layoutErr         map[domain.BroadcastID]error
	startErr          error
	stopErr           map[domain.BroadcastID]error
	signalErr         error
	disconnectErr     error
}

var _ ports.VideoProvider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		streams:     map[domain.SessionID][]domain.Stream{},
		layoutCalls: map[domain.BroadcastID]domain.Algorithm{},
		layoutErr:   map[domain.BroadcastID]error{},
		stopErr:     map[domain.BroadcastID]error{},
	}
}

func (f *fakeProvider) addStream(sessionID domain.SessionID, id domain.StreamID, classes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[sessionID] = append(f.streams[sessionID], domain.Stream{
		ID:              id,
		ConnectionID:    domain.ConnectionID("conn-" + string(id)),
		Kind:            domain.StreamKindCamera,
		LayoutClassList: classes,
	})
}

func (f *fakeProvider) addBroadcast(b domain.Broadcast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, b)
}

func (f *fakeProvider) classesOf(sessionID domain.SessionID) map[domain.StreamID][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.StreamID][]string{}
	for _, s := range f.streams[sessionID] {
		out[s.ID] = append([]string{}, s.LayoutClassList...)
	}
	return out
}

func (f *fakeProvider) startedCount(sessionID domain.SessionID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.broadcasts {
		if b.SessionID == sessionID && b.IsStarted() {
			n++
		}
	}
	return n
}

func (f *fakeProvider) ListStreams(ctx context.Context, sessionID domain.SessionID) ([]domain.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listStreamsErr != nil {
		return nil, f.listStreamsErr
	}
	out := make([]domain.Stream, len(f.streams[sessionID]))
	for i, s := range f.streams[sessionID] {
		s.LayoutClassList = append([]string(nil), s.LayoutClassList...)
		out[i] = s
	}
	return out, nil
}

func (f *fakeProvider) ListBroadcasts(ctx context.Context, filter ports.BroadcastFilter) ([]domain.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listBroadcastsErr != nil {
		return nil, f.listBroadcastsErr
	}
	var out []domain.Broadcast
	for _, b := range f.broadcasts {
		if filter.SessionID == "" || b.SessionID == filter.SessionID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeProvider) SetStreamClassLists(ctx context.Context, sessionID domain.SessionID, mutations []domain.StreamClassMutation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classCalls = append(f.classCalls, mutations)
	if f.setClassesErr != nil {
		return f.setClassesErr
	}
	streams := f.streams[sessionID]
	for _, m := range mutations {
		for i := range streams {
			if streams[i].ID == m.StreamID {
				streams[i].LayoutClassList = append([]string(nil), m.ClassList...)
			}
		}
	}
	return nil
}

func (f *fakeProvider) SetBroadcastLayout(ctx context.Context, broadcastID domain.BroadcastID, layout domain.Algorithm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.layoutErr[broadcastID]; err != nil {
		return err
	}
	f.layoutCalls[broadcastID] = layout
	return nil
}

func (f *fakeProvider) StartBroadcast(ctx context.Context, sessionID domain.SessionID, req domain.StartBroadcastRequest) (*domain.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.nextID++
	b := domain.Broadcast{
		ID:           domain.BroadcastID(fmt.Sprintf("started-%d", f.nextID)),
		SessionID:    sessionID,
		Status:       domain.BroadcastStatusStarted,
		Destinations: req.Destinations,
		CreatedAt:    time.Unix(0, 0),
	}
	f.broadcasts = append(f.broadcasts, b)
	return &b, nil
}

func (f *fakeProvider) StopBroadcast(ctx context.Context, broadcastID domain.BroadcastID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, broadcastID)
	if err := f.stopErr[broadcastID]; err != nil {
		return err
	}
	for i := range f.broadcasts {
		if f.broadcasts[i].ID == broadcastID {
			f.broadcasts[i].Status = domain.BroadcastStatusStopped
		}
	}
	return nil
}

func (f *fakeProvider) Signal(ctx context.Context, sessionID domain.SessionID, signal domain.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signalErr != nil {
		return f.signalErr
	}
	f.signals = append(f.signals, signal)
	return nil
}

func (f *fakeProvider) ForceDisconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.disconnectErr != nil {
		return f.disconnectErr
	}
	f.disconnects = append(f.disconnects, connectionID)
	return nil
}

// metricsSpy counts recorded measurements.
type metricsSpy struct {
	mu                sync.Mutex
	reconciliations   map[domain.ReconcileState]int
	invalidRefs       int
	layoutFailures    int
	startsOK          int
	startsFailed      int
	stopsOK           int
	stopsFailed       int
	anomalies         int
	participantPrunes int
}

func newMetricsSpy() *metricsSpy {
	return &metricsSpy{reconciliations: map[domain.ReconcileState]int{}}
}

func (m *metricsSpy) RecordReconciliation(state domain.ReconcileState, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations[state]++
}

func (m *metricsSpy) RecordInvalidReferences(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidRefs += count
}

func (m *metricsSpy) RecordLayoutPushFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.layoutFailures++
}

func (m *metricsSpy) RecordBroadcastStarted(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.startsOK++
	} else {
		m.startsFailed++
	}
}

func (m *metricsSpy) RecordBroadcastStopped(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.stopsOK++
	} else {
		m.stopsFailed++
	}
}

func (m *metricsSpy) RecordBroadcastAnomaly(extra int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies += extra
}

func (m *metricsSpy) RecordParticipantStreamsPruned(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.participantPrunes += count
}

// Mock repositories and services

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReconciled(ctx context.Context, outcome *domain.ReconcileOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

func (m *MockPublisher) PublishBroadcastStarted(ctx context.Context, sessionID domain.SessionID, broadcast *domain.Broadcast) error {
	args := m.Called(ctx, sessionID, broadcast)
	return args.Error(0)
}

func (m *MockPublisher) PublishBroadcastsStopped(ctx context.Context, sessionID domain.SessionID, stopped []domain.BroadcastID) error {
	args := m.Called(ctx, sessionID, stopped)
	return args.Error(0)
}

type MockEventSessionRepository struct {
	mock.Mock
}

func (m *MockEventSessionRepository) Save(ctx context.Context, session *domain.EventSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockEventSessionRepository) GetByID(ctx context.Context, id domain.EventSessionID) (*domain.EventSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventSession), args.Error(1)
}

func (m *MockEventSessionRepository) GetBySessionID(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventSession), args.Error(1)
}

func (m *MockEventSessionRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.EventSession, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventSession), args.Error(1)
}

type MockChannelStackRepository struct {
	mock.Mock
}

func (m *MockChannelStackRepository) Save(ctx context.Context, stack *domain.ChannelStack) error {
	args := m.Called(ctx, stack)
	return args.Error(0)
}

func (m *MockChannelStackRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.ChannelStack, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChannelStack), args.Error(1)
}

type MockLayoutRepository struct {
	mock.Mock
}

func (m *MockLayoutRepository) Create(ctx context.Context, record *domain.LayoutIntentRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockLayoutRepository) Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error) {
	args := m.Called(ctx, eventSessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LayoutIntentRecord), args.Error(1)
}

type MockParticipantStreamRepository struct {
	mock.Mock
}

func (m *MockParticipantStreamRepository) Add(ctx context.Context, stream *domain.ParticipantStream) error {
	args := m.Called(ctx, stream)
	return args.Error(0)
}

func (m *MockParticipantStreamRepository) Remove(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID, streamID domain.StreamID) (bool, error) {
	args := m.Called(ctx, eventID, connectionID, streamID)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantStreamRepository) RemoveByConnection(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID) (int, error) {
	args := m.Called(ctx, eventID, connectionID)
	return args.Int(0), args.Error(1)
}

func (m *MockParticipantStreamRepository) ListByEvent(ctx context.Context, eventID domain.EventID) ([]*domain.ParticipantStream, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ParticipantStream), args.Error(1)
}

func (m *MockParticipantStreamRepository) RemoveExcept(ctx context.Context, eventID domain.EventID, keep []domain.StreamID) (int, error) {
	args := m.Called(ctx, eventID, keep)
	return args.Int(0), args.Error(1)
}

type MockParticipantReconciler struct {
	mock.Mock
}

func (m *MockParticipantReconciler) PruneInvalid(ctx context.Context, sessionID domain.SessionID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockParticipantReconciler) RecordStream(ctx context.Context, sessionID domain.SessionID, registrantID domain.RegistrantID, stream domain.Stream) error {
	args := m.Called(ctx, sessionID, registrantID, stream)
	return args.Error(0)
}

func (m *MockParticipantReconciler) RemoveStream(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID, streamID domain.StreamID) error {
	args := m.Called(ctx, sessionID, connectionID, streamID)
	return args.Error(0)
}

func (m *MockParticipantReconciler) Disconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	args := m.Called(ctx, sessionID, connectionID)
	return args.Error(0)
}

type MockLayoutApplier struct {
	mock.Mock
}

func (m *MockLayoutApplier) Apply(ctx context.Context, sessionID domain.SessionID, descriptor domain.LayoutDescriptor) (*domain.ApplyReport, error) {
	args := m.Called(ctx, sessionID, descriptor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplyReport), args.Error(1)
}

type MockBroadcastManager struct {
	mock.Mock
}

func (m *MockBroadcastManager) EnsureStarted(ctx context.Context, sessionID domain.SessionID, dest domain.RTMPDestination, current domain.LayoutDescriptor) (*domain.EnsureResult, error) {
	args := m.Called(ctx, sessionID, dest, current)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnsureResult), args.Error(1)
}

func (m *MockBroadcastManager) StopAll(ctx context.Context, sessionID domain.SessionID) (*domain.StopReport, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StopReport), args.Error(1)
}

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Reconcile(ctx context.Context, record *domain.LayoutIntentRecord) *domain.ReconcileOutcome {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.ReconcileOutcome)
}
