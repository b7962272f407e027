package sessionkit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "logins_total",
			Help:      "Login attempts by outcome (remote, local_fallback, rejected).",
		},
		[]string{"outcome"},
	)

	revalidationsDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "revalidations_discarded_total",
			Help:      "Background revalidation results dropped because the identity changed while they were in flight.",
		},
	)

	sessionsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessionkit",
			Name:      "sessions_published_total",
			Help:      "Identity publications by kind (signed_in, signed_out).",
		},
		[]string{"kind"},
	)
)
