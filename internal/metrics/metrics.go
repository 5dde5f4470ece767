package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Queue view-model counters, partitioned by filter, source, or action.

var (
	// Store
	StoreFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuebot",
		Subsystem: "store",
		Name:      "fetch_total",
		Help:      "Total queue list fetches",
	}, []string{"filter", "result"})

	StoreFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "queuebot",
		Subsystem: "store",
		Name:      "fetch_duration_seconds",
		Help:      "Queue list fetch duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"filter"})

	StoreRecordUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuebot",
		Subsystem: "store",
		Name:      "record_updates_total",
		Help:      "Single-record replacements, applied or dropped because the id was not on the page",
	}, []string{"source", "result"})

	// Dispatcher
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuebot",
		Subsystem: "dispatcher",
		Name:      "actions_total",
		Help:      "Operator actions by outcome",
	}, []string{"action", "outcome"})

	ActionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "queuebot",
		Subsystem: "dispatcher",
		Name:      "action_duration_seconds",
		Help:      "Action POST duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"action"})

	// Live subscriber
	LiveMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "queuebot",
		Subsystem: "live",
		Name:      "messages_total",
		Help:      "Inbound push messages by type",
	}, []string{"type"})

	LiveDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "queuebot",
		Subsystem: "live",
		Name:      "decode_errors_total",
		Help:      "Push frames that could not be decoded",
	})

	LiveConnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "queuebot",
		Subsystem: "live",
		Name:      "connects_total",
		Help:      "Successful push channel connections",
	})

	LiveConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuebot",
		Subsystem: "live",
		Name:      "connected",
		Help:      "1 while the push channel is connected",
	})

	// Sessions
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "queuebot",
		Subsystem: "session",
		Name:      "active",
		Help:      "Operator chat sessions currently open",
	})
)
