package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Energinet-DataHub/geh-message-archive/core"
	"github.com/Energinet-DataHub/geh-message-archive/parsing"
	"github.com/Energinet-DataHub/geh-message-archive/storage"
)

const (
	defaultListPageSize = 500
	defaultPoolSize     = 32
)

// Pipeline orchestrates one ingestion pass: list ready blobs, download
// them concurrently, parse, archive and persist each.
type Pipeline struct {
	archive  storage.ArchiveStore
	records  storage.RecordStore
	pool     *ants.Pool
	limits   parsing.Limits
	pageSize int
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent downloads.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithPageSize sets how many blobs one run lists. The remainder of the
// source container is left for subsequent runs.
func WithPageSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.pageSize = size
		}
		return nil
	}
}

// WithLimits sets the parser limits.
func WithLimits(limits parsing.Limits) Option {
	return func(p *Pipeline) error {
		p.limits = limits
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMetrics sets the pipeline counters.
func WithMetrics(metrics *Metrics) Option {
	return func(p *Pipeline) error {
		if metrics != nil {
			p.metrics = metrics
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(archive storage.ArchiveStore, records storage.RecordStore, opts ...Option) (*Pipeline, error) {
	if archive == nil {
		return nil, ErrArchiveStoreRequired
	}
	if records == nil {
		return nil, ErrRecordStoreRequired
	}

	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		archive:  archive,
		records:  records,
		pool:     pool,
		limits:   parsing.DefaultLimits(),
		pageSize: defaultListPageSize,
		logger:   slog.Default(),
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// RunOnce processes one page of ready blobs. Per-item parse failures
// degrade the item and continue; archive or persistence failures abort
// the remainder of the page and are surfaced to the caller. The runner
// logs them; nothing is retried within the run, the next scheduled run
// picks up whatever is still in the source container.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	page, err := p.archive.List(ctx, p.pageSize)
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}
	if len(page) == 0 {
		return nil
	}

	p.logger.Debug("processing blob page", "count", len(page))

	downloaded := p.downloadAll(ctx, page)

	for _, raw := range downloaded {
		if err := p.processItem(ctx, raw); err != nil {
			return err
		}
	}

	return nil
}

// downloadAll fans the page's downloads out on the worker pool and
// waits for all of them. A failed download is logged and its item
// dropped from the page; the blob stays in the source container for the
// next run.
func (p *Pipeline) downloadAll(ctx context.Context, page []*core.RawRecord) []*core.RawRecord {
	var wg sync.WaitGroup
	failed := make([]bool, len(page))

	for i, raw := range page {
		i, raw := i, raw
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.archive.Download(ctx, raw); err != nil {
				p.metrics.DownloadFailures.Inc()
				p.logger.Error("failed to download blob", "name", raw.Name, "err", err)
				failed[i] = true
			}
		}); err != nil {
			wg.Done()
			p.metrics.DownloadFailures.Inc()
			p.logger.Error("failed to submit download", "name", raw.Name, "err", err)
			failed[i] = true
		}
	}
	wg.Wait()

	downloaded := make([]*core.RawRecord, 0, len(page))
	for i, raw := range page {
		if !failed[i] {
			downloaded = append(downloaded, raw)
		}
	}
	return downloaded
}

// processItem parses one downloaded blob, relocates it into the archive
// container and persists the parsed record. The persisted record always
// points at the archived location.
func (p *Pipeline) processItem(ctx context.Context, raw *core.RawRecord) error {
	record := p.parseRecord(raw)

	archivedURI, err := p.archive.Archive(ctx, raw)
	if err != nil {
		p.metrics.ArchiveFailures.Inc()
		return fmt.Errorf("archive blob %s: %w", raw.Name, err)
	}
	record.BlobContentURI = archivedURI

	if err := p.records.Create(ctx, record); err != nil {
		p.metrics.PersistFailures.Inc()
		return fmt.Errorf("persist record for blob %s: %w", raw.Name, err)
	}

	p.metrics.RecordsProcessed.Inc()
	return nil
}

// parseRecord classifies and parses one blob. Never fails: a structural
// parse failure keeps the properties-only extraction and marks the
// record with ParsingSuccess=false.
func (p *Pipeline) parseRecord(raw *core.RawRecord) *core.ParsedRecord {
	kind := parsing.ClassifyRecord(raw)
	record, err := parsing.Parse(kind, raw, p.limits)
	if err != nil {
		p.metrics.ParseFailures.Inc()
		p.logger.Error("structural parse failed, keeping properties only",
			"name", raw.Name, "kind", kind.String(), "err", err)
		return parsing.Fallback(raw)
	}
	return record
}

// Release releases the worker pool. The pipeline should not be used
// after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
