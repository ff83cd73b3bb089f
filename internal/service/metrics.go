package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/postforge/autoposter/internal/transfer"
)

// Sweep kinds as they appear in metric labels.
const (
	sweepKindSchedule = "schedule"
	sweepKindGenerate = "generate"
	sweepKindCutoff   = "cutoff"
	sweepKindPublish  = "publish"
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoposter_sweep_runs_total",
		Help: "Number of sweep executions by kind.",
	}, []string{"kind"})

	sweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoposter_sweep_duration_seconds",
		Help:    "Wall time of one sweep run.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	sweepPostOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoposter_sweep_post_outcomes_total",
		Help: "Per-post sweep outcomes by kind and result status.",
	}, []string{"kind", "status"})

	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "autoposter_token_refreshes_total",
		Help: "LinkedIn token refreshes by outcome.",
	}, []string{"outcome"})
)

func observeSweep(kind string, result *transfer.SweepResult, started time.Time) {
	sweepRuns.WithLabelValues(kind).Inc()
	sweepDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if result == nil {
		return
	}
	for _, r := range result.Results {
		sweepPostOutcomes.WithLabelValues(kind, r.Status).Inc()
	}
}
