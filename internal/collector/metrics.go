package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xscrapper",
			Name:      "collector_records_total",
			Help:      "Raw records collected per source",
		},
		[]string{"source"},
	)

	apiPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xscrapper",
			Name:      "api_pages_total",
			Help:      "API pages fetched by outcome",
		},
		[]string{"status"},
	)

	mirrorFailovers = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "xscrapper",
			Name:      "mirror_failovers_total",
			Help:      "Mirror advances caused by rate-limit banners",
		},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xscrapper",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of per-target collection attempts",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
		},
		[]string{"source"},
	)
)
