package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// kernelEventsTotal counts lifecycle event dispatches.
	// Labels:
	// - event:  "kernel.request"
	// - result: "ok" or "error"
	kernelEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditbridge",
			Subsystem: "kernel",
			Name:      "events_total",
			Help:      "Lifecycle events dispatched, by event and result.",
		},
		[]string{"event", "result"},
	)

	// blameableStampsTotal counts blameable fields written by the ORM plugin.
	// Labels:
	// - operation: "create" or "update"
	// - source:    "request" or "default"
	blameableStampsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditbridge",
			Subsystem: "blameable",
			Name:      "stamps_total",
			Help:      "Blameable fields stamped, by operation and value source.",
		},
		[]string{"operation", "source"},
	)

	// logEntriesTotal counts log entries written by the loggable plugin.
	// Labels:
	// - action: "create", "update" or "remove"
	// - result: "ok" or "error"
	logEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "auditbridge",
			Subsystem: "loggable",
			Name:      "entries_total",
			Help:      "Log entries written, by action and result.",
		},
		[]string{"action", "result"},
	)
)

// IncKernelEvent increments the kernel event counter.
func IncKernelEvent(event, result string) {
	if event == "" {
		event = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	kernelEventsTotal.WithLabelValues(event, result).Inc()
}

// IncBlameableStamp increments the blameable stamp counter.
func IncBlameableStamp(operation, source string) {
	if operation == "" {
		operation = "unknown"
	}
	if source == "" {
		source = "unknown"
	}
	blameableStampsTotal.WithLabelValues(operation, source).Inc()
}

// IncLogEntry increments the log entry counter.
func IncLogEntry(action, result string) {
	if action == "" {
		action = "unknown"
	}
	if result == "" {
		result = "unknown"
	}
	logEntriesTotal.WithLabelValues(action, result).Inc()
}
