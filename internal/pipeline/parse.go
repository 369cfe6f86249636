package pipeline

import (
	"TrafficParser/internal/filter"
	"TrafficParser/internal/metrics"
	"TrafficParser/internal/model"
	"TrafficParser/internal/protocol"
	"TrafficParser/internal/store"
	"TrafficParser/pkg/pcap"
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBatchSize is used when Options leaves the batch size unset.
const DefaultBatchSize = 1000

// Options configures one parse run.
type Options struct {
	Dir      string
	Criteria model.FilterCriteria
	// BatchSize is the number of records committed per transaction.
	BatchSize int
	// MaxFrames caps the frames read per file; zero means unlimited.
	MaxFrames int
}

// Publisher receives every committed batch.
type Publisher interface {
	Publish(ctx context.Context, records []model.TrafficRecord) error
}

// Parser drives capture files through extraction and filtering into a store.
type Parser struct {
	store     store.Store
	log       zerolog.Logger
	metrics   *metrics.Metrics
	publisher Publisher
}

// NewParser creates a parser. m and pub may be nil.
func NewParser(s store.Store, log zerolog.Logger, m *metrics.Metrics, pub Publisher) *Parser {
	if m == nil {
		m = metrics.New()
	}
	return &Parser{store: s, log: log, metrics: m, publisher: pub}
}

// Run parses every capture file directly under opts.Dir. Per-frame and
// per-file problems are logged, counted and skipped; a store failure aborts
// the run, leaving earlier batches committed.
func (p *Parser) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	report := &Report{StartedAt: time.Now().UTC()}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	files, err := pcap.ListCaptureFiles(opts.Dir)
	if err != nil {
		return report, err
	}
	if len(files) == 0 {
		p.log.Warn().Str("dir", opts.Dir).Msg("No capture files found")
		return report, nil
	}
	p.log.Info().Str("dir", opts.Dir).Int("files", len(files)).Msg("Found capture files")

	b := &batcher{parser: p, size: opts.BatchSize, report: report}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		fr, err := p.parseFile(ctx, path, opts, b)
		report.Files = append(report.Files, fr)
		report.FramesRead += fr.FramesRead
		report.Dropped += fr.Dropped
		report.Capped += fr.Capped
		report.Filtered += fr.Filtered
		if err != nil {
			return report, err
		}
		if fr.Error != "" {
			report.FilesFailed++
			p.metrics.FilesFailed.Inc()
		} else {
			report.FilesProcessed++
			p.metrics.FilesProcessed.Inc()
		}
	}

	if err := b.flush(ctx); err != nil {
		return report, err
	}

	p.log.Info().
		Int("files_processed", report.FilesProcessed).
		Int("files_failed", report.FilesFailed).
		Int("records_written", report.RecordsWritten).
		Int("skipped", report.Skipped()).
		Int("filtered", report.Filtered).
		Msg("Parse finished")
	return report, nil
}

// parseFile streams one file into the batcher. The returned error is only
// set for failures that must abort the run.
func (p *Parser) parseFile(ctx context.Context, path string, opts Options, b *batcher) (FileReport, error) {
	fr := FileReport{Name: filepath.Base(path)}
	log := p.log.With().Str("file", fr.Name).Logger()

	reader, err := pcap.NewReader(path, opts.MaxFrames)
	if err != nil {
		log.Error().Err(err).Msg("Skipping unreadable capture file")
		fr.Error = err.Error()
		return fr, nil
	}
	defer reader.Close()

	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error().Err(err).Int("frames_read", fr.FramesRead).Msg("Capture file is corrupt, keeping frames read so far")
			fr.Error = err.Error()
			break
		}
		fr.FramesRead++
		p.metrics.FramesRead.Inc()

		record, err := protocol.ExtractRecord(frame)
		if err != nil {
			fr.Dropped++
			p.metrics.FramesSkipped.WithLabelValues(metrics.ReasonDropped).Inc()
			log.Debug().Err(err).Int("frame", frame.Index).Msg("Dropping frame")
			continue
		}
		if !filter.Match(&record, opts.Criteria) {
			fr.Filtered++
			p.metrics.FramesSkipped.WithLabelValues(metrics.ReasonFiltered).Inc()
			continue
		}

		fr.Records++
		if err := b.add(ctx, record); err != nil {
			return fr, err
		}
	}

	fr.Capped = reader.Skipped()
	if fr.Capped > 0 {
		p.metrics.FramesSkipped.WithLabelValues(metrics.ReasonCapped).Add(float64(fr.Capped))
		log.Warn().Int("limit", opts.MaxFrames).Int("capped", fr.Capped).Msg("Frame limit reached")
	}
	log.Info().Int("frames", fr.FramesRead).Int("records", fr.Records).Msg("Parsed capture file")
	return fr, nil
}

// batcher accumulates records and commits them in fixed-size batches.
type batcher struct {
	parser  *Parser
	size    int
	pending []model.TrafficRecord
	report  *Report
}

func (b *batcher) add(ctx context.Context, r model.TrafficRecord) error {
	b.pending = append(b.pending, r)
	if len(b.pending) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	p := b.parser
	if err := p.store.Append(ctx, b.pending); err != nil {
		p.log.Error().Err(err).Int("batch", len(b.pending)).Msg("Failed to commit batch")
		return err
	}
	b.report.RecordsWritten += len(b.pending)
	p.metrics.RecordsWritten.Add(float64(len(b.pending)))
	p.metrics.BatchesCommitted.Inc()
	p.log.Debug().Int("batch", len(b.pending)).Int("total", b.report.RecordsWritten).Msg("Committed batch")

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, b.pending); err != nil {
			p.log.Warn().Err(err).Msg("Failed to publish batch")
		} else {
			p.metrics.RecordsPublished.Add(float64(len(b.pending)))
		}
	}

	b.pending = make([]model.TrafficRecord, 0, b.size)
	return nil
}
