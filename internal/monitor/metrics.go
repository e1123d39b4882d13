package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "xscrapper",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of collection cycles in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
	)

	postsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xscrapper",
			Name:      "posts_stored_total",
			Help:      "Posts successfully upserted into the store",
		},
	)

	storeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xscrapper",
			Name:      "store_failures_total",
			Help:      "Post upserts dropped due to store errors",
		},
	)
)
