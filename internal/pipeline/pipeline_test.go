package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/location-sitemap/internal/catalog"
	"github.com/couchcryptid/location-sitemap/internal/observability"
	"github.com/couchcryptid/location-sitemap/internal/pipeline"
	"github.com/couchcryptid/location-sitemap/internal/sitemap"
	"github.com/couchcryptid/location-sitemap/internal/slug"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://example.com.au/locations/"

// --- mocks ---

type mockSource struct {
	yaml string
	err  error
}

func (m *mockSource) LoadCatalog() (*catalog.Catalog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return catalog.Load(strings.NewReader(m.yaml), catalog.Options{})
}

type mockWriter struct {
	written []byte
	err     error
}

func (m *mockWriter) WriteDocument(render func(io.Writer) error) error {
	if m.err != nil {
		return m.err
	}
	var sb strings.Builder
	if err := render(&sb); err != nil {
		return err
	}
	m.written = []byte(sb.String())
	return nil
}

type mockPublisher struct {
	runID   string
	entries []sitemap.Entry
	err     error
}

func (m *mockPublisher) Publish(_ context.Context, runID string, entries []sitemap.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.runID = runID
	m.entries = entries
	return nil
}

// emptyBuilder passes validation but produces no document.
type emptyBuilder struct{}

func (emptyBuilder) Validate(*catalog.Catalog) error { return nil }

func (emptyBuilder) Build(*catalog.Catalog) (*sitemap.Document, error) { return nil, nil }

const twoSuburbs = `
locations: [MountWaverley, Carlton]
groups:
  - priority: 0.95
    label: Inner
    members: [Carlton]
  - priority: 0.8
    label: Eastern
    members: [MountWaverley]
`

func newBuilder() *pipeline.SitemapBuilder {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.September, 17, 22, 30, 0, 0, time.UTC))
	return pipeline.NewBuilder(slug.Default(), sitemap.Options{BaseURL: testBaseURL}, clock)
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	wr := &mockWriter{}
	pub := &mockPublisher{}
	metrics := observability.NewMetrics()

	p := pipeline.New(&mockSource{yaml: twoSuburbs}, newBuilder(), wr, pub, slog.Default(), metrics)
	require.Error(t, p.CheckReadiness(context.Background()))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, 2, res.Groups)
	assert.Equal(t, len(wr.written), res.Bytes)
	assert.Equal(t, time.Date(2025, time.September, 17, 0, 0, 0, 0, time.UTC), res.LastMod)
	_, err = uuid.Parse(res.RunID)
	require.NoError(t, err)

	out := string(wr.written)
	assert.Contains(t, out, "<loc>"+testBaseURL+"carlton</loc>")
	assert.Contains(t, out, "<lastmod>2025-09-17</lastmod>")
	assert.Contains(t, out, "<!-- Inner (0.95 priority) -->")
	assert.Less(t, strings.Index(out, "carlton"), strings.Index(out, "mount-waverley"))

	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, wr.written, p.Document())

	assert.Equal(t, res.RunID, pub.runID)
	require.Len(t, pub.entries, 2)
	assert.Equal(t, "carlton", pub.entries[0].Slug)
	assert.Equal(t, "mount-waverley", pub.entries[1].Slug)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.CatalogEntries), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.EntriesEmitted), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.EntriesPublished), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Groups), 0)
}

func TestPipeline_Run_WithoutPublisher(t *testing.T) {
	wr := &mockWriter{}
	metrics := observability.NewMetrics()

	p := pipeline.New(&mockSource{yaml: twoSuburbs}, newBuilder(), wr, nil, slog.Default(), metrics)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, wr.written)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.EntriesPublished), 0)
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	first := &mockWriter{}
	second := &mockWriter{}

	_, err := pipeline.New(&mockSource{yaml: twoSuburbs}, newBuilder(), first, nil, slog.Default(), observability.NewMetrics()).Run(context.Background())
	require.NoError(t, err)
	_, err = pipeline.New(&mockSource{yaml: twoSuburbs}, newBuilder(), second, nil, slog.Default(), observability.NewMetrics()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.written, second.written)
}

func TestPipeline_Run_StageFailures(t *testing.T) {
	collision := `
locations: [StKilda, StKILDA]
groups:
  - {priority: 0.9, members: [StKilda, StKILDA]}
`
	tests := []struct {
		name    string
		source  *mockSource
		writer  *mockWriter
		pub     *mockPublisher
		stage   string
		wantErr error
	}{
		{
			name:   "catalog",
			source: &mockSource{err: errors.New("no such file")},
			writer: &mockWriter{},
			stage:  "catalog",
		},
		{
			name:    "collision",
			source:  &mockSource{yaml: collision},
			writer:  &mockWriter{},
			stage:   "validate",
			wantErr: slug.ErrSlugCollision,
		},
		{
			name:   "write",
			source: &mockSource{yaml: twoSuburbs},
			writer: &mockWriter{err: errors.New("read-only file system")},
			stage:  "write",
		},
		{
			name:   "publish",
			source: &mockSource{yaml: twoSuburbs},
			writer: &mockWriter{},
			pub:    &mockPublisher{err: errors.New("broker unavailable")},
			stage:  "publish",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetrics()
			var pub pipeline.EntryPublisher
			if tt.pub != nil {
				pub = tt.pub
			}

			p := pipeline.New(tt.source, newBuilder(), tt.writer, pub, slog.Default(), metrics)
			_, err := p.Run(context.Background())

			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunErrors.WithLabelValues(tt.stage)), 0)
		})
	}
}

func TestPipeline_Run_EncodeFailureCountedSeparately(t *testing.T) {
	wr := &mockWriter{}
	metrics := observability.NewMetrics()

	p := pipeline.New(&mockSource{yaml: twoSuburbs}, emptyBuilder{}, wr, nil, slog.Default(), metrics)
	_, err := p.Run(context.Background())

	require.ErrorIs(t, err, sitemap.ErrNilDocument)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RunErrors.WithLabelValues("encode")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.RunErrors.WithLabelValues("build")), 0)
	assert.Nil(t, wr.written)
}

func TestPipeline_Run_CollisionWritesNothing(t *testing.T) {
	wr := &mockWriter{}
	src := &mockSource{yaml: "locations: [StKilda, StKILDA]\ngroups:\n  - {priority: 0.9, members: [StKilda, StKILDA]}\n"}

	p := pipeline.New(src, newBuilder(), wr, nil, slog.Default(), observability.NewMetrics())
	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"StKilda"`)
	assert.Contains(t, err.Error(), `"StKILDA"`)
	assert.Nil(t, wr.written)
	assert.Nil(t, p.Document())
}

func TestSitemapBuilder_ExplicitLastModWins(t *testing.T) {
	lastMod := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	b := pipeline.NewBuilder(slug.Default(), sitemap.Options{BaseURL: testBaseURL, LastMod: lastMod}, clockwork.NewFakeClock())

	c, err := catalog.Load(strings.NewReader(twoSuburbs), catalog.Options{})
	require.NoError(t, err)

	doc, err := b.Build(c)
	require.NoError(t, err)
	assert.Equal(t, lastMod, doc.LastMod)
	assert.Equal(t, "Inner", doc.Groups[0].Label)
}

func TestSitemapBuilder_Slugs(t *testing.T) {
	c, err := catalog.Load(strings.NewReader(twoSuburbs), catalog.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"mount-waverley", "carlton"}, newBuilder().Slugs(c))
}
