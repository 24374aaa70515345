package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_draw_runs_total",
			Help: "Total draw runs by outcome and trigger source",
		},
		[]string{"outcome", "source"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lotto_draw_duration_ms",
			Help:    "Draw run duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"outcome"},
	)

	drawWinners = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_draw_winners_total",
			Help: "Winning tickets by tier",
		},
		[]string{"tier"},
	)

	drawTickets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_draw_tickets_total",
			Help: "Tickets evaluated or skipped as malformed",
		},
		[]string{"kind"},
	)

	bonusTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lotto_bonus_tickets_total",
			Help: "Bonus ticket issuance by result",
		},
		[]string{"result"},
	)
)

// RecordDraw 记录一次开奖
// outcome: "settled" | "already_settled" | "busy" | "fail"
// source: "schedule" | "http" | "cli"
func RecordDraw(outcome, source string, started time.Time) {
	oc := strings.ToLower(strings.TrimSpace(outcome))
	if oc == "" {
		oc = "fail"
	}
	src := strings.ToLower(strings.TrimSpace(source))
	if src == "" {
		src = "unknown"
	}
	drawTotal.WithLabelValues(oc, src).Inc()
	drawDuration.WithLabelValues(oc).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordSettlement 记录各奖级中奖数与票数
func RecordSettlement(tierSizes map[string]int, evaluated, skipped int) {
	for tier, n := range tierSizes {
		drawWinners.WithLabelValues(tier).Add(float64(n))
	}
	drawTickets.WithLabelValues("evaluated").Add(float64(evaluated))
	drawTickets.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordBonus result: "issued" | "fail" | "ineligible"
func RecordBonus(result string) { bonusTotal.WithLabelValues(result).Inc() }
