package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "traffic_parser"

// Skip reasons used with FramesSkipped.
const (
	ReasonDropped  = "dropped"
	ReasonCapped   = "capped"
	ReasonFiltered = "filtered"
)

// Metrics holds the counters of one process. It owns its registry so tests
// and commands never share global state.
type Metrics struct {
	registry         *prometheus.Registry
	FilesProcessed   prometheus.Counter
	FilesFailed      prometheus.Counter
	FramesRead       prometheus.Counter
	FramesSkipped    *prometheus.CounterVec
	RecordsWritten   prometheus.Counter
	BatchesCommitted prometheus.Counter
	RecordsExported  prometheus.Counter
	RecordsPublished prometheus.Counter
	APIRequests      *prometheus.CounterVec
}

// New creates the metric set on a fresh registry.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Capture files read to the end",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      "Capture files that could not be opened or were cut short by corruption",
		}),
		FramesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_read_total",
			Help:      "Frames read from capture files",
		}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames not persisted, by reason",
		}, []string{"reason"}),
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Traffic records committed to the store",
		}),
		BatchesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_committed_total",
			Help:      "Batches committed to the store",
		}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      "Traffic records written to export bundles",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Traffic records published to the message bus",
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Query API requests by route and status code",
		}, []string{"route", "code"}),
	}
	r.MustRegister(
		m.FilesProcessed, m.FilesFailed, m.FramesRead, m.FramesSkipped,
		m.RecordsWritten, m.BatchesCommitted, m.RecordsExported, m.RecordsPublished,
		m.APIRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, reason := range []string{ReasonDropped, ReasonCapped, ReasonFiltered} {
		m.FramesSkipped.WithLabelValues(reason)
	}
	return m
}

// Registry exposes the registry for HTTP handlers and tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile dumps the current values in the Prometheus text format, for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
