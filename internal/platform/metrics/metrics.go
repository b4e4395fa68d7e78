// Package metrics provides Prometheus observability for the aging engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector gathers engine metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	Ticks                   prometheus.Counter
	TickDuration            prometheus.Histogram
	Deaths                  *prometheus.CounterVec
	ReconcileActions        *prometheus.CounterVec
	CollaboratorFailures    *prometheus.CounterVec
	Records                 *prometheus.GaugeVec
	EventWriteErrors        prometheus.Counter
	FeedClients             prometheus.Gauge
	SkippedPersistedEntries prometheus.Counter
}

// New creates the collector and registers it on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crew_aging_ticks_total",
			Help: "Total number of engine ticks processed",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crew_aging_tick_duration_seconds",
			Help:    "Wall time spent processing one tick",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Deaths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_aging_deaths_total",
			Help: "Deaths adjudicated, by whether the moment was observed",
		}, []string{"mode"}),
		ReconcileActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_aging_reconcile_actions_total",
			Help: "Ledger corrections applied by the reconciler",
		}, []string{"action"}),
		CollaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_aging_collaborator_failures_total",
			Help: "Failed calls to external collaborators",
		}, []string{"collaborator"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crew_aging_records",
			Help: "Tracked mortality records by state",
		}, []string{"state"}),
		EventWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crew_aging_event_write_errors_total",
			Help: "Lifecycle events that failed to persist",
		}),
		FeedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crew_aging_feed_clients",
			Help: "Connected WebSocket feed clients",
		}),
		SkippedPersistedEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crew_aging_skipped_persisted_entries_total",
			Help: "Malformed save entries skipped on load",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.Ticks, c.TickDuration, c.Deaths, c.ReconcileActions,
			c.CollaboratorFailures, c.Records, c.EventWriteErrors,
			c.FeedClients, c.SkippedPersistedEntries,
		)
	}
	return c
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(latency.Seconds())
}

// RecordDeath counts a death by mode ("known" or "discovered").
func (c *Collector) RecordDeath(known bool) {
	if c == nil {
		return
	}
	mode := "discovered"
	if known {
		mode = "known"
	}
	c.Deaths.WithLabelValues(mode).Inc()
}

// RecordReconcile counts a reconciler action.
func (c *Collector) RecordReconcile(action string) {
	if c == nil {
		return
	}
	c.ReconcileActions.WithLabelValues(action).Inc()
}

// RecordCollaboratorFailure counts a failed collaborator call.
func (c *Collector) RecordCollaboratorFailure(collaborator string) {
	if c == nil {
		return
	}
	c.CollaboratorFailures.WithLabelValues(collaborator).Inc()
}

// SetRecordCounts publishes the ledger population.
func (c *Collector) SetRecordCounts(alive, dead int) {
	if c == nil {
		return
	}
	c.Records.WithLabelValues("alive").Set(float64(alive))
	c.Records.WithLabelValues("dead").Set(float64(dead))
}

// RecordEventWriteError counts a failed event write-through.
func (c *Collector) RecordEventWriteError() {
	if c == nil {
		return
	}
	c.EventWriteErrors.Inc()
}

// RecordFeedClient adjusts the connected feed client gauge.
func (c *Collector) RecordFeedClient(delta float64) {
	if c == nil {
		return
	}
	c.FeedClients.Add(delta)
}

// RecordSkippedEntries counts save entries dropped on load.
func (c *Collector) RecordSkippedEntries(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.SkippedPersistedEntries.Add(float64(n))
}
