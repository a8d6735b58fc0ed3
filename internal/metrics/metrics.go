// Package metrics holds the prometheus collectors of a tab process.
package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync pass outcomes used as the "outcome" label.
const (
	OutcomeCompleted  = "completed"
	OutcomeInProgress = "in_progress"
	OutcomeNoToken    = "no_token"
	OutcomeOffline    = "offline"
	OutcomeError      = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	InvoicesCommitted   prometheus.Counter
	InvoicesQueued      prometheus.Counter
	InvoicesSynced      prometheus.Counter
	InvoiceSyncFailures prometheus.Counter
	SyncPasses          *prometheus.CounterVec
	PendingInvoices     prometheus.Gauge
	LeaseHeartbeats     prometheus.Counter
	Online              prometheus.Gauge
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InvoicesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msana_invoices_committed_total",
			Help: "Invoices accepted by the server on the first attempt.",
		}),
		InvoicesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msana_invoices_queued_total",
			Help: "Invoices written to the offline queue.",
		}),
		InvoicesSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msana_invoices_synced_total",
			Help: "Queued invoices replayed successfully.",
		}),
		InvoiceSyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msana_invoice_sync_failures_total",
			Help: "Queued invoice replays that failed and stay queued.",
		}),
		SyncPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "msana_sync_passes_total",
			Help: "Sync pass attempts by outcome.",
		}, []string{"outcome"}),
		PendingInvoices: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "msana_pending_invoices",
			Help: "Unsynced invoices in the offline queue.",
		}),
		LeaseHeartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "msana_lease_heartbeats_total",
			Help: "Lease renewals written by this tab.",
		}),
		Online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "msana_online",
			Help: "1 when the billing API is reachable.",
		}),
	}
	m.registry.MustRegister(
		m.InvoicesCommitted,
		m.InvoicesQueued,
		m.InvoicesSynced,
		m.InvoiceSyncFailures,
		m.SyncPasses,
		m.PendingInvoices,
		m.LeaseHeartbeats,
		m.Online,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Committed() {
	if m != nil {
		m.InvoicesCommitted.Inc()
	}
}

func (m *Metrics) Queued() {
	if m != nil {
		m.InvoicesQueued.Inc()
	}
}

func (m *Metrics) Heartbeat() {
	if m != nil {
		m.LeaseHeartbeats.Inc()
	}
}

// SyncPass records one pass attempt and its per-entry counts.
func (m *Metrics) SyncPass(outcome string, synced, failed int) {
	if m == nil {
		return
	}
	m.SyncPasses.WithLabelValues(outcome).Inc()
	m.InvoicesSynced.Add(float64(synced))
	m.InvoiceSyncFailures.Add(float64(failed))
}

func (m *Metrics) SetPending(n int) {
	if m != nil {
		m.PendingInvoices.Set(float64(n))
	}
}

func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.Online.Set(1)
	} else {
		m.Online.Set(0)
	}
}

// Router serves /metrics and a liveness probe for the tab process itself.
func (m *Metrics) Router() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}
