package monitoring

import (
	"strconv"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	reconciliationsTotal   *prometheus.CounterVec
	invalidReferencesTotal prometheus.Counter
	layoutPushFailures     prometheus.Counter
	broadcastStartsTotal   *prometheus.CounterVec
	broadcastStopsTotal    *prometheus.CounterVec
	broadcastAnomalies     prometheus.Counter
	extraBroadcastsStopped prometheus.Counter
	participantsPruned     prometheus.Counter

	// Histograms
	reconcileDuration *prometheus.HistogramVec
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers on reg, or on the default registerer when reg is nil.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		reconciliationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycast_reconciliations_total",
			Help: "Layout reconciliations by final state",
		}, []string{"state"}),

		invalidReferencesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaycast_invalid_stream_references_total",
			Help: "Layout stream references that did not match a live stream",
		}),

		layoutPushFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaycast_broadcast_layout_push_failures_total",
			Help: "Failed broadcast layout updates",
		}),

		broadcastStartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycast_broadcast_starts_total",
			Help: "Broadcast start attempts by result",
		}, []string{"success"}),

		broadcastStopsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relaycast_broadcast_stops_total",
			Help: "Broadcast stop attempts by result",
		}, []string{"success"}),

		broadcastAnomalies: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaycast_broadcast_anomalies_total",
			Help: "Sessions found with more than one started broadcast",
		}),

		extraBroadcastsStopped: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaycast_broadcast_anomaly_extras_total",
			Help: "Extra started broadcasts found during anomaly handling",
		}),

		participantsPruned: factory.NewCounter(prometheus.CounterOpts{
			Name: "relaycast_participant_streams_pruned_total",
			Help: "Participant stream records removed because the stream was not live",
		}),

		reconcileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relaycast_reconcile_duration_seconds",
			Help:    "Duration of layout reconciliations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"state"}),
	}
}

func (p *PrometheusCollector) RecordReconciliation(state domain.ReconcileState, duration time.Duration) {
	p.reconciliationsTotal.WithLabelValues(string(state)).Inc()
	p.reconcileDuration.WithLabelValues(string(state)).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordInvalidReferences(count int) {
	if count > 0 {
		p.invalidReferencesTotal.Add(float64(count))
	}
}

func (p *PrometheusCollector) RecordLayoutPushFailure() {
	p.layoutPushFailures.Inc()
}

func (p *PrometheusCollector) RecordBroadcastStarted(success bool) {
	p.broadcastStartsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (p *PrometheusCollector) RecordBroadcastStopped(success bool) {
	p.broadcastStopsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

func (p *PrometheusCollector) RecordBroadcastAnomaly(extra int) {
	p.broadcastAnomalies.Inc()
	if extra > 0 {
		p.extraBroadcastsStopped.Add(float64(extra))
	}
}

func (p *PrometheusCollector) RecordParticipantStreamsPruned(count int) {
	if count > 0 {
		p.participantsPruned.Add(float64(count))
	}
}
