package export

import (
	"TrafficParser/internal/metrics"
	"TrafficParser/internal/model"
	"TrafficParser/internal/snapshot"
	"TrafficParser/internal/store"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Result describes the files written by an export.
type Result struct {
	Bundle         *model.ExportBundle
	BundlePath     string
	StatisticsPath string
}

// Exporter turns query results into export bundles on disk.
type Exporter struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
	writer  *snapshot.Writer

	// Now and NewID are replaceable for reproducible output.
	Now   func() time.Time
	NewID func() string
}

// New creates an exporter writing 2-space indented JSON. m may be nil.
func New(log zerolog.Logger, m *metrics.Metrics) *Exporter {
	if m == nil {
		m = metrics.New()
	}
	return &Exporter{
		log:     log,
		metrics: m,
		writer:  snapshot.NewWriter(),
		Now:     time.Now,
		NewID:   func() string { return uuid.NewString() },
	}
}

// StatisticsPath derives the statistics file path from the bundle path:
// out/traffic.json becomes out/traffic_statistics.json.
func StatisticsPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_statistics" + ext
}

// Build drains cursor into a bundle. Statistics, when requested, cover exactly
// the bundled records.
func (e *Exporter) Build(cursor store.Cursor, criteria model.FilterCriteria, withStats bool) (*model.ExportBundle, error) {
	records, err := store.Collect(cursor)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.TrafficRecord{}
	}

	bundle := &model.ExportBundle{
		Metadata: model.ExportMetadata{
			ExportID:        e.NewID(),
			ExportTimestamp: e.Now().UTC().Truncate(time.Microsecond),
			ExportVersion:   model.ExportVersion,
			TotalPackets:    len(records),
			FiltersApplied:  criteria,
		},
		Packets: records,
	}
	if withStats {
		bundle.Statistics = ComputeStatistics(records)
	}
	return bundle, nil
}

// Write stores the bundle at path and, when it carries statistics, the
// statistics report next to it. Failures are model.ErrExport naming the path.
func (e *Exporter) Write(bundle *model.ExportBundle, path string) (*Result, error) {
	if path == "" {
		return nil, model.Configurationf("export output path is empty")
	}
	if err := e.writer.WriteJSON(path, bundle); err != nil {
		return nil, model.NewPathError(model.ErrExport, path, err)
	}
	result := &Result{Bundle: bundle, BundlePath: path}

	if bundle.Statistics != nil {
		statsPath := StatisticsPath(path)
		report := model.StatisticsReport{Metadata: bundle.Metadata, Statistics: bundle.Statistics}
		if err := e.writer.WriteJSON(statsPath, report); err != nil {
			return nil, model.NewPathError(model.ErrExport, statsPath, err)
		}
		result.StatisticsPath = statsPath
	}

	e.metrics.RecordsExported.Add(float64(len(bundle.Packets)))
	e.log.Info().
		Str("export_id", bundle.Metadata.ExportID).
		Int("packets", len(bundle.Packets)).
		Str("path", path).
		Str("statistics", result.StatisticsPath).
		Msg("Export written")
	return result, nil
}

// Export queries s with criteria and writes the bundle to path.
func (e *Exporter) Export(ctx context.Context, s store.Store, criteria model.FilterCriteria, path string, withStats bool) (*Result, error) {
	cursor, err := s.Query(ctx, criteria)
	if err != nil {
		return nil, err
	}
	bundle, err := e.Build(cursor, criteria, withStats)
	if err != nil {
		return nil, err
	}
	return e.Write(bundle, path)
}
