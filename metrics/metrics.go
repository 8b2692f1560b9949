// Package metrics exposes the viewer's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLoads counts pumped nodes by outcome: loaded, missing or failed.
	CacheLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointviewer_cache_loads_total",
			Help: "Nodes taken off the load queue, by outcome",
		},
		[]string{"result"},
	)

	// CacheRequests counts lookups by outcome: hit, queued or pending.
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pointviewer_cache_requests_total",
			Help: "Node view lookups, by outcome",
		},
		[]string{"result"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pointviewer_cache_evictions_total",
			Help: "Node views evicted from the cache",
		},
	)

	CacheResidentNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointviewer_cache_resident_nodes",
			Help: "Node views currently held by the cache",
		},
	)

	CacheResidentBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointviewer_cache_resident_bytes",
			Help: "Point payload bytes held by resident node views",
		},
	)

	CacheQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pointviewer_cache_queue_length",
			Help: "Nodes waiting to be loaded",
		},
	)

	// FrameDuration covers one full frame including loads and draws.
	FrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pointviewer_frame_duration_seconds",
			Help:    "Wall time of one viewer frame",
			Buckets: []float64{0.002, 0.005, 0.01, 0.016, 0.033, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// FrameStats holds the latest per-frame counters, labeled by stat name.
	FrameStats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pointviewer_frame_stat",
			Help: "Latest frame statistics: points_drawn, nodes_drawn, visible_nodes, display_level",
		},
		[]string{"stat"},
	)
)
