package kv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	writeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "storage_write_failures_total",
			Help:      "Writes a medium rejected (quota, disabled, I/O fault).",
		},
		[]string{"medium"},
	)

	corruptionRepairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "storage_corruption_repairs_total",
			Help:      "Corrupted entries replaced with the safe placeholder.",
		},
		[]string{"medium"},
	)
)
