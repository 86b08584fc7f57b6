package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorate", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tutorate", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	PaymentAssignments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorate", Name: "payment_assignments_total", Help: "Payment assignment outcomes",
	}, []string{"outcome"})
	StoreHealthy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "tutorate", Name: "store_healthy", Help: "1 when the database answered the last ping",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tutorate", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tutorate", Name: "job_runs_total", Help: "Scheduled job executions",
	}, []string{"job", "result"})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, PaymentAssignments, StoreHealthy, DBPing, JobRuns)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

const (
	OutcomeAssigned  = "assigned"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

func ObservePayment(outcome string) { PaymentAssignments.WithLabelValues(outcome).Inc() }
