package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	DepositsInitiated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deposits_initiated_total",
			Help: "Deposit intents created",
		},
	)
	Verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_verifications_total",
			Help: "Provider verification outcomes",
		},
		[]string{"outcome"}, // success|denied|pending|unreachable|already_processed
	)
	CreditsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_credits_applied_total",
			Help: "Exactly-once balance credits applied",
		},
	)
	DebitsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_debits_applied_total",
			Help: "Exactly-once balance debits applied",
		},
	)
	SweptPending = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stale_pending_swept_total",
			Help: "Stale pending deposits handled by the sweeper",
		},
		[]string{"result"}, // recovered|expired|deferred
	)

	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(DepositsInitiated)
	prometheus.MustRegister(Verifications)
	prometheus.MustRegister(CreditsApplied)
	prometheus.MustRegister(DebitsApplied)
	prometheus.MustRegister(SweptPending)
	prometheus.MustRegister(WorkerQueueDepth)
}
