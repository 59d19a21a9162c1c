package pipeline

import (
	"fmt"
	"time"

	"github.com/couchcryptid/location-sitemap/internal/catalog"
	"github.com/couchcryptid/location-sitemap/internal/sitemap"
	"github.com/couchcryptid/location-sitemap/internal/slug"
	"github.com/jonboulle/clockwork"
)

// SitemapBuilder implements Builder: it validates every catalog identifier
// against the normalizer, then builds the grouped document.
type SitemapBuilder struct {
	normalizer *slug.Normalizer
	opts       sitemap.Options
	clock      clockwork.Clock
}

// NewBuilder creates a SitemapBuilder. When opts.LastMod is zero the current
// UTC date from clock is stamped on every entry.
func NewBuilder(n *slug.Normalizer, opts sitemap.Options, clock clockwork.Clock) *SitemapBuilder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SitemapBuilder{normalizer: n, opts: opts, clock: clock}
}

// Validate checks that every identifier in the catalog normalizes to a
// distinct, well-formed slug.
func (b *SitemapBuilder) Validate(c *catalog.Catalog) error {
	if err := b.normalizer.Validate(c.Locations); err != nil {
		return fmt.Errorf("validate catalog: %w", err)
	}
	return nil
}

// Build groups the catalog's priorities into a sitemap document.
func (b *SitemapBuilder) Build(c *catalog.Catalog) (*sitemap.Document, error) {
	opts := b.opts
	if opts.LastMod.IsZero() {
		opts.LastMod = today(b.clock)
	}
	if opts.Labels == nil {
		opts.Labels = c.Labels()
	}

	doc, err := sitemap.Build(c.Priorities(), b.normalizer, opts)
	if err != nil {
		return nil, fmt.Errorf("build sitemap: %w", err)
	}
	return doc, nil
}

// Slugs returns the normalized slug of every catalog location, in catalog order.
func (b *SitemapBuilder) Slugs(c *catalog.Catalog) []string {
	out := make([]string, len(c.Locations))
	for i, id := range c.Locations {
		out[i] = b.normalizer.Normalize(id)
	}
	return out
}

func today(clock clockwork.Clock) time.Time {
	y, m, d := clock.Now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
