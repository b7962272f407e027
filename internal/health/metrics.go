package health

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sessionkit",
		Name:      "oracle_failures_total",
		Help:      "Identity provider calls reported as failed.",
	})

	circuitOpenGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sessionkit",
		Name:      "circuit_open",
		Help:      "1 while the identity provider circuit is open.",
	})
)
