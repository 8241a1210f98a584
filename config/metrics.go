package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inbound/outbound counters for the messaging pipeline. Exposed on /metrics.
var (
	EventsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_events_admitted_total",
		Help: "Inbound messaging events admitted by the receipt ledger.",
	})
	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_events_duplicate_total",
		Help: "Inbound messaging events ignored as duplicates.",
	})
	EventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_events_rejected_total",
		Help: "Inbound messaging events rejected (receipt write failure); channel will retry.",
	})
	RepliesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_replies_dispatched_total",
		Help: "Outbound replies handed to the dispatcher.",
	})
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockchat_dispatch_failures_total",
		Help: "Outbound dispatch attempts that failed (fire-and-forget; logged only).",
	})
)
