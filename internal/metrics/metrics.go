// Package metrics provides Prometheus metrics for the command bridge and workspace operations.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DirectionRead labels bytes returned by file reads.
	DirectionRead = "read"
	// DirectionWrite labels bytes stored by file writes.
	DirectionWrite = "write"
)

var (
	bridgeCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marginal_bridge_commands_total",
			Help: "Total number of bridge commands executed",
		},
		[]string{"command", "status"},
	)

	bridgeCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marginal_bridge_command_duration_seconds",
			Help:    "Bridge command duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	treeBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marginal_tree_build_duration_seconds",
			Help:    "Time to list a directory tree",
			Buckets: prometheus.DefBuckets,
		},
	)

	treeEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marginal_tree_entries",
			Help: "Number of entries in the most recently listed tree",
		},
	)

	fileBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marginal_file_bytes_total",
			Help: "Total bytes read from or written to workspace files",
		},
		[]string{"direction"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordCommand records one bridge command outcome.
func RecordCommand(command string, status int, duration time.Duration) {
	bridgeCommandsTotal.WithLabelValues(command, strconv.Itoa(status)).Inc()
	bridgeCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordTreeBuild records a completed directory listing.
func RecordTreeBuild(entryCount int, duration time.Duration) {
	treeEntries.Set(float64(entryCount))
	treeBuildDuration.Observe(duration.Seconds())
}

// RecordFileBytes records bytes moved in direction.
func RecordFileBytes(direction string, byteCount int) {
	fileBytesTotal.WithLabelValues(direction).Add(float64(byteCount))
}
