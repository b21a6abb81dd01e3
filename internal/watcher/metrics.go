package watcher

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts the watcher's externally visible activity.
type Metrics struct {
	ReceiptsProcessed prometheus.Counter
	LaunchesDetected  prometheus.Counter
	LocksDetected     prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	ReceiptFailures   prometheus.Counter
	NotifyFailures    prometheus.Counter
	SubscriptionDrops prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		ReceiptsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_receipts_processed_total",
			Help: "Total number of transaction receipts correlated",
		}),
		LaunchesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_launches_detected_total",
			Help: "Total number of token launches detected",
		}),
		LocksDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_locks_detected_total",
			Help: "Total number of settings locks detected",
		}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_duplicates_skipped_total",
			Help: "Total number of transactions skipped as already seen",
		}),
		ReceiptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_receipt_failures_total",
			Help: "Total number of receipts that could not be fetched",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_notify_failures_total",
			Help: "Total number of failed notification deliveries",
		}),
		SubscriptionDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "launchscope_subscription_drops_total",
			Help: "Total number of live subscription errors followed by a resubscribe",
		}),
	}
}

// Register installs the counters into a registry.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.ReceiptsProcessed,
		m.LaunchesDetected,
		m.LocksDetected,
		m.DuplicatesSkipped,
		m.ReceiptFailures,
		m.NotifyFailures,
		m.SubscriptionDrops,
	)
}

// ServeMetrics exposes /metrics on addr. It blocks until the server
// fails, so callers run it in its own goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
