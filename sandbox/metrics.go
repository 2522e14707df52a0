package sandbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphbox_sandbox_executions_total",
		Help: "Sandboxed runs by outcome kind.",
	}, []string{"outcome"})

	executionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "graphbox_sandbox_execution_seconds",
		Help:    "Wall-clock duration of sandboxed runs.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	})

	rejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "graphbox_sandbox_rejections_total",
		Help: "Submissions rejected by static validation.",
	})

	normalizeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graphbox_sandbox_normalize_failures_total",
		Help: "Successful runs whose output could not be normalized, by error code.",
	}, []string{"code"})
)
