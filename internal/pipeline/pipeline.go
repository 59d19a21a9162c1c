package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/location-sitemap/internal/catalog"
	"github.com/couchcryptid/location-sitemap/internal/observability"
	"github.com/couchcryptid/location-sitemap/internal/sitemap"
	"github.com/google/uuid"
)

// CatalogSource loads the input catalog.
type CatalogSource interface {
	LoadCatalog() (*catalog.Catalog, error)
}

// Builder validates the catalog and turns it into a sitemap document.
type Builder interface {
	Validate(c *catalog.Catalog) error
	Build(c *catalog.Catalog) (*sitemap.Document, error)
}

// DocumentWriter persists a rendered document. Implementations must not leave
// a partial document in place when render fails.
type DocumentWriter interface {
	WriteDocument(render func(io.Writer) error) error
}

// EntryPublisher announces the entries of a freshly written sitemap.
type EntryPublisher interface {
	Publish(ctx context.Context, runID string, entries []sitemap.Entry) error
}

// Result summarizes a successful run.
type Result struct {
	RunID   string
	Entries int
	Groups  int
	Bytes   int
	LastMod time.Time
}

// Pipeline runs one catalog → sitemap generation. Stages run in order and the
// first failure aborts the run; nothing is retried.
type Pipeline struct {
	source    CatalogSource
	builder   Builder
	writer    DocumentWriter
	publisher EntryPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	document  atomic.Pointer[[]byte]
}

// New creates a Pipeline. publisher may be nil to skip publishing.
func New(s CatalogSource, b Builder, w DocumentWriter, pub EntryPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    s,
		builder:   b,
		writer:    w,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a document has been rendered.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.document.Load() == nil {
		return errors.New("sitemap has not been rendered")
	}
	return nil
}

// Document returns the bytes of the last successfully written sitemap.
func (p *Pipeline) Document() []byte {
	if doc := p.document.Load(); doc != nil {
		return *doc
	}
	return nil
}

// Run executes a single generation.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	c, err := p.source.LoadCatalog()
	if err != nil {
		return Result{}, p.fail(logger, "catalog", err)
	}
	p.metrics.CatalogEntries.Set(float64(c.Len()))
	logger.Debug("catalog loaded", "locations", c.Len(), "groups", len(c.Groups))

	if err := p.builder.Validate(c); err != nil {
		return Result{}, p.fail(logger, "validate", err)
	}

	doc, err := p.builder.Build(c)
	if err != nil {
		return Result{}, p.fail(logger, "build", err)
	}

	var buf bytes.Buffer
	if err := sitemap.Encode(&buf, doc); err != nil {
		return Result{}, p.fail(logger, "encode", err)
	}
	rendered := buf.Bytes()

	if err := p.writer.WriteDocument(func(w io.Writer) error {
		_, err := w.Write(rendered)
		return err
	}); err != nil {
		return Result{}, p.fail(logger, "write", fmt.Errorf("write sitemap: %w", err))
	}
	p.document.Store(&rendered)

	p.metrics.EntriesEmitted.Add(float64(doc.Len()))
	p.metrics.Groups.Set(float64(len(doc.Groups)))
	p.metrics.DocumentSizeBytes.Set(float64(len(rendered)))

	if p.publisher != nil {
		entries := doc.Entries()
		if err := p.publisher.Publish(ctx, runID, entries); err != nil {
			return Result{}, p.fail(logger, "publish", err)
		}
		p.metrics.EntriesPublished.Add(float64(len(entries)))
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastRunTimestamp.SetToCurrentTime()

	res := Result{
		RunID:   runID,
		Entries: doc.Len(),
		Groups:  len(doc.Groups),
		Bytes:   len(rendered),
		LastMod: doc.LastMod,
	}
	logger.Info("sitemap written",
		"entries", res.Entries,
		"groups", res.Groups,
		"bytes", res.Bytes,
		"lastmod", res.LastMod.Format(sitemap.DateLayout),
		"duration", time.Since(start),
	)
	return res, nil
}

func (p *Pipeline) fail(logger *slog.Logger, stage string, err error) error {
	p.metrics.RunErrors.WithLabelValues(stage).Inc()
	logger.Error("sitemap generation failed", "stage", stage, "error", err)
	return err
}
