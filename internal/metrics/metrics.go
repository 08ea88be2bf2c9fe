package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcome labels for blocksIngested.
const (
	StatusApplied   = "applied"
	StatusMalformed = "malformed"
	StatusRejected  = "rejected"
)

var (
	blocksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainquery",
		Subsystem: "ingest",
		Name:      "blocks_total",
		Help:      "Count of blocks taken from the feed, by outcome.",
	}, []string{"status"})

	reorgsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "chainquery",
		Subsystem: "chain",
		Name:      "reorgs_total",
		Help:      "Count of main-chain reorganizations.",
	})

	reorgDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chainquery",
		Subsystem: "chain",
		Name:      "reorg_depth",
		Help:      "Number of main-chain blocks detached per reorganization.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	chainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chainquery",
		Subsystem: "chain",
		Name:      "height",
		Help:      "Height of the current main-chain tip.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chainquery",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Count of served HTTP requests.",
	}, []string{"path", "status"})
)

// ObserveBlock records the outcome of one block taken from the feed.
func ObserveBlock(status string) {
	blocksIngested.WithLabelValues(status).Inc()
}

// ObserveReorg records a main-chain reorganization and its depth.
func ObserveReorg(depth int64) {
	reorgsTotal.Inc()
	reorgDepth.Observe(float64(depth))
}

// SetChainHeight records the current tip height.
func SetChainHeight(height int64) {
	chainHeight.Set(float64(height))
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(path string, status int) {
	httpRequests.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
