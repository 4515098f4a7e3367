package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for UpstreamRequests.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
)

var (
	// UpstreamRequests counts outbound calls to traffic providers.
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "traffic_upstream_requests_total",
			Help: "Total number of outbound traffic provider requests",
		},
		[]string{"provider", "outcome"},
	)

	// HeatmapDuration tracks end-to-end heatmap computation time.
	HeatmapDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "traffic_heatmap_duration_seconds",
			Help:    "Duration of heatmap computations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// HeatmapDegradedPoints counts points emitted with the default intensity
	// because their flow lookup failed.
	HeatmapDegradedPoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "traffic_heatmap_degraded_points_total",
			Help: "Heatmap points that fell back to the default intensity",
		},
	)

	// IssuesReported counts issues accepted by the report endpoint.
	IssuesReported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "city_issues_reported_total",
			Help: "Total number of reported city issues",
		},
	)

	// IssuesPruned counts issues dropped by retention.
	IssuesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "city_issues_pruned_total",
			Help: "Total number of issues removed by retention",
		},
	)
)
