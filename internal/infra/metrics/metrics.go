package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shenhe_sweeps_total",
		Help: "Completed scheduler sweeps by kind (notify, claim).",
	}, []string{"kind"})

	SweepItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shenhe_sweep_items_total",
		Help: "Items processed during sweeps by kind and result.",
	}, []string{"kind", "result"})

	AlertsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shenhe_alerts_dispatched_total",
		Help: "Threshold alerts sent to users.",
	})

	ClaimsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shenhe_claims_succeeded_total",
		Help: "Daily reward claims that succeeded or were already claimed.",
	})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shenhe_sweep_duration_seconds",
		Help:    "Wall time of one full sweep.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	}, []string{"kind"})
)
