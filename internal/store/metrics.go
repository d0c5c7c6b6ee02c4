package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ratingsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ratingboard",
		Subsystem: "store",
		Name:      "ratings",
		Help:      "Number of ratings currently held in memory.",
	})

	persistOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ratingboard",
		Subsystem: "store",
		Name:      "persist_operations_total",
		Help:      "Load and save operations against the blob store, by result.",
	}, []string{"operation", "result"})
)
