package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cleanupDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lotto_ticket_cleanup_deleted_total",
			Help: "Tickets deleted by the cleanup job",
		},
	)

	cleanupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotto_ticket_cleanup_duration_ms",
			Help:    "Ticket cleanup duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	outboxTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_outbox_dispatch_total",
			Help: "Outbox dispatch attempts by topic and result",
		},
		[]string{"topic", "result"},
	)
)

// RecordCleanup 记录一次票清理
func RecordCleanup(deleted int64, err error, started time.Time) {
	res := "success"
	if err != nil {
		res = "fail"
	}
	cleanupDeleted.Add(float64(deleted))
	cleanupDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordOutbox result: sent|fail
func RecordOutbox(topic, result string) { outboxTotal.WithLabelValues(topic, result).Inc() }
