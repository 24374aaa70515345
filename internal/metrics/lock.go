package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lockDecisionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_draw_lock_decisions_total",
			Help: "Draw lock acquisition decisions",
		},
		[]string{"decision"},
	)

	lockReleaseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_draw_lock_releases_total",
			Help: "Draw lock releases by final state",
		},
		[]string{"state", "result"},
	)
)

// RecordLockDecision decision: acquire|reclaim|already_settled|busy|error
func RecordLockDecision(decision string) { lockDecisionTotal.WithLabelValues(decision).Inc() }

// RecordLockRelease state: completed|failed；result: ok|lost|error
func RecordLockRelease(state, result string) { lockReleaseTotal.WithLabelValues(state, result).Inc() }
