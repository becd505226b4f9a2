// Package metrics holds the domain-level Prometheus collectors for the code
// registry and points ledger. HTTP-level metrics live in the middleware.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationDuration tracks core operation latency by operation and outcome.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "codeshare_operation_duration_seconds",
			Help: "Duration of code registry and ledger operations in seconds",
			Buckets: []float64{
				0.001, // 1ms
				0.005, // 5ms
				0.01,  // 10ms
				0.025, // 25ms
				0.05,  // 50ms
				0.1,   // 100ms
				0.25,  // 250ms
				0.5,   // 500ms
				1.0,   // 1s
				5.0,   // 5s (ad watch)
			},
		},
		[]string{"op", "status"},
	)

	// ClaimsTotal counts claim attempts by result (ok, fully_claimed, not_found, error).
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_claims_total",
			Help: "Code claim attempts by result",
		},
		[]string{"result"},
	)

	// PublishedTotal counts inserted codes by source (user, admin).
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_codes_published_total",
			Help: "Codes inserted by source",
		},
		[]string{"source"},
	)

	// PointsTotal sums ledger movements by direction (credit, debit).
	PointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeshare_points_total",
			Help: "Points moved through the ledger by direction",
		},
		[]string{"direction"},
	)

	// PurgedTotal counts codes removed by the expiry sweep.
	PurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeshare_codes_purged_total",
			Help: "Expired codes deleted by the sweep",
		},
	)

	// StreamClients gauges open event-stream connections.
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeshare_event_stream_clients",
			Help: "Open WebSocket event stream connections",
		},
	)
)

// RecordOperation observes the duration of op since start.
func RecordOperation(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	OperationDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// RecordClaim counts a claim attempt.
func RecordClaim(result string) {
	ClaimsTotal.WithLabelValues(result).Inc()
}

// RecordPublished counts an inserted code.
func RecordPublished(source string) {
	PublishedTotal.WithLabelValues(source).Inc()
}

// RecordCredit adds amount to the credited total.
func RecordCredit(amount int64) {
	PointsTotal.WithLabelValues("credit").Add(float64(amount))
}

// RecordDebit adds amount to the debited total.
func RecordDebit(amount int64) {
	PointsTotal.WithLabelValues("debit").Add(float64(amount))
}

// RecordPurged adds n to the purged total.
func RecordPurged(n int64) {
	PurgedTotal.Add(float64(n))
}

// StreamOpened and StreamClosed track event-stream connections.
func StreamOpened() { StreamClients.Inc() }
func StreamClosed() { StreamClients.Dec() }
