package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the monitoring pipeline's metrics.
type Registry struct {
	CyclesTotal         prometheus.Counter
	CyclesAborted       prometheus.Counter
	EventsSeen          prometheus.Counter
	EventsMatched       prometheus.Counter
	NotificationsSent   prometheus.Counter
	NotificationsDedup  prometheus.Counter
	NotificationsFilter prometheus.Counter
	SendFailures        prometheus.Counter
	IndexRefreshErrors  prometheus.Counter
	KnownCasesRows      prometheus.Gauge
}

// NewRegistry creates and registers the pipeline metrics on reg. Passing
// prometheus.DefaultRegisterer wires them into the default handler.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_cycles_total",
			Help: "Monitoring cycles started.",
		}),
		CyclesAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_cycles_aborted_total",
			Help: "Monitoring cycles aborted before the cursor advanced.",
		}),
		EventsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_events_seen_total",
			Help: "Registry feed events observed, including irrelevant ones.",
		}),
		EventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_events_matched_total",
			Help: "Feed events matching an active tracked company.",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_notifications_sent_total",
			Help: "Notifications dispatched successfully.",
		}),
		NotificationsDedup: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_notifications_deduplicated_total",
			Help: "Dispatches skipped because the ledger already held the key.",
		}),
		NotificationsFilter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_notifications_filtered_total",
			Help: "Dispatches skipped by the known-cases opt-out filter.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_send_failures_total",
			Help: "Dispatch attempts that failed; retried next cycle via the ledger.",
		}),
		IndexRefreshErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtmon_index_refresh_errors_total",
			Help: "Known-cases index refresh failures (cycle continues with stale index).",
		}),
		KnownCasesRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtmon_known_cases_rows",
			Help: "Provenance rows touched by the last index refresh.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			r.CyclesTotal, r.CyclesAborted,
			r.EventsSeen, r.EventsMatched,
			r.NotificationsSent, r.NotificationsDedup, r.NotificationsFilter,
			r.SendFailures, r.IndexRefreshErrors, r.KnownCasesRows,
		)
	}

	return r
}

// NewNopRegistry creates unregistered metrics for tests.
func NewNopRegistry() *Registry {
	return NewRegistry(nil)
}
