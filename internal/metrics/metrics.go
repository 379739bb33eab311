package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote Intake Metrics
var (
	// VotesAcceptedTotal tracks votes accepted into the queue by choice
	VotesAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_accepted_total",
			Help: "Total votes accepted into the queue by choice",
		},
		[]string{"choice"},
	)

	// VotesRejectedTotal tracks votes rejected before enqueue by reason
	VotesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_rejected_total",
			Help: "Total votes rejected by reason (not_found/closed/invalid_choice/debounced/rate_limited/queue_unavailable)",
		},
		[]string{"reason"},
	)

	// VoteIntakeDuration tracks end-to-end vote submission latency
	VoteIntakeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vote_intake_duration_seconds",
			Help:    "Vote submission duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
	)
)

// Queue Metrics
var (
	// QueueAppendsTotal tracks successful queue appends
	QueueAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_appends_total",
			Help: "Total vote events appended to the queue",
		},
	)

	// QueueAppendFailuresTotal tracks failed queue appends
	QueueAppendFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_append_failures_total",
			Help: "Total vote events that could not be appended to the queue",
		},
	)

	// QueueDeadLetteredTotal tracks entries moved to the dead-letter list by reason
	QueueDeadLetteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_dead_lettered_total",
			Help: "Total entries moved to the dead-letter list by reason (malformed/persist_failed)",
		},
		[]string{"reason"},
	)

	// QueueDepth tracks current queue length, sampled by the consumer
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current number of entries waiting in the vote queue",
		},
	)
)

// Consumer Metrics
var (
	// ConsumerProcessedTotal tracks consumed entries by result
	ConsumerProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_processed_total",
			Help: "Total queue entries processed by result (persisted/malformed/dead_lettered)",
		},
		[]string{"result"},
	)

	// ConsumerRetriesTotal tracks persistence retry attempts
	ConsumerRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "consumer_retries_total",
			Help: "Total persistence retry attempts after a transient failure",
		},
	)

	// ConsumerPersistDuration tracks time to persist a single vote event
	ConsumerPersistDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consumer_persist_duration_seconds",
			Help:    "Duration of persisting a single vote event in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// Broadcast Metrics
var (
	// BroadcastPublishedTotal tracks update notifications published
	BroadcastPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_published_total",
			Help: "Total update notifications published to the broadcast channel",
		},
	)

	// BroadcastDroppedTotal tracks notifications dropped by the circuit breaker or publish errors
	BroadcastDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_dropped_total",
			Help: "Total update notifications dropped instead of published",
		},
	)

	// BroadcastSubscribersActive tracks active pub/sub subscriptions held by this process
	BroadcastSubscribersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_subscribers_active",
			Help: "Current number of active broadcast channel subscriptions",
		},
	)
)

// Stream Metrics
var (
	// StreamClientsCurrent tracks connected live stream clients by transport
	StreamClientsCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_clients_current",
			Help: "Current number of connected live update clients by transport (sse/websocket)",
		},
		[]string{"transport"},
	)

	// StreamClientsRejectedTotal tracks stream connections rejected at capacity
	StreamClientsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_clients_rejected_total",
			Help: "Total stream connections rejected by reason (capacity/unauthorized)",
		},
		[]string{"reason"},
	)

	// StreamEventsDeliveredTotal tracks update frames delivered to stream clients
	StreamEventsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_events_delivered_total",
			Help: "Total update frames delivered to clients by transport",
		},
		[]string{"transport"},
	)

	// HubSlowClientsEvicted tracks WebSocket clients evicted for a full send buffer
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total WebSocket clients evicted because their send buffer filled",
		},
	)

	// HubCommandChannelDepth tracks current hub command channel depth
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current hub command channel depth",
		},
	)
)

// Database Metrics
var (
	// DBQueryDuration tracks database query duration by query name
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"query"},
	)

	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)

// HTTP Error Metrics
// Note: http_errors_total{type} is provided by internal/errors package
