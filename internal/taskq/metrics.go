package taskq

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "taskq_submissions_total",
			Help:      "Background jobs accepted into the queue.",
		},
		[]string{"shard"},
	)

	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "taskq_queue_full_total",
			Help:      "Submissions rejected because a shard stayed full.",
		},
		[]string{"shard"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sessionkit",
			Name:      "taskq_run_duration_seconds",
			Help:      "Wall time of a single job attempt.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sessionkit",
			Name:      "taskq_queue_depth",
			Help:      "Jobs waiting in each shard.",
		},
		[]string{"shard"},
	)
)

func labelFor(shard int) string { return strconv.Itoa(shard) }
