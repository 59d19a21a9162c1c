// Package sitemap builds and serializes the location sitemap
// (https://www.sitemaps.org/protocol.html).
package sitemap

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/location-sitemap/internal/slug"
)

// DateLayout is the W3C date format used for <lastmod>.
const DateLayout = "2006-01-02"

// ErrInvalidPriority is returned for priorities outside (0, 1].
var ErrInvalidPriority = errors.New("invalid priority")

// ErrInvalidChangeFreq is returned for change frequencies the protocol does not define.
var ErrInvalidChangeFreq = errors.New("invalid change frequency")

var changeFreqs = []string{"always", "hourly", "daily", "weekly", "monthly", "yearly", "never"}

// Entry is one <url> record.
type Entry struct {
	Identifier string    `json:"identifier"`
	Slug       string    `json:"slug"`
	Loc        string    `json:"loc"`
	LastMod    time.Time `json:"lastmod"`
	ChangeFreq string    `json:"changefreq"`
	Priority   float64   `json:"priority"`
}

// Group holds the entries sharing one priority, sorted by slug.
type Group struct {
	Priority float64
	Label    string
	Entries  []Entry
}

// Document is an ordered sitemap: groups by descending priority.
type Document struct {
	LastMod time.Time
	Groups  []Group
}

// Options carries the fixed per-entry metadata.
type Options struct {
	// BaseURL is prefixed verbatim to every slug.
	BaseURL string
	// LastMod is stamped on every entry; only the date part is written.
	LastMod time.Time
	// ChangeFreq defaults to "weekly".
	ChangeFreq string
	// Labels optionally names each priority group in the output.
	Labels map[float64]string
}

// Build normalizes every identifier, groups the entries by exact priority and
// orders them for output. Two identifiers sharing a slug fail the whole build.
func Build(priorities map[string]float64, n *slug.Normalizer, opts Options) (*Document, error) {
	freq := cmp.Or(opts.ChangeFreq, "weekly")
	if !slices.Contains(changeFreqs, freq) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChangeFreq, freq)
	}

	// Walk identifiers in sorted order so collision errors are reproducible.
	ids := make([]string, 0, len(priorities))
	for id := range priorities {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var errs []error
	bySlug := make(map[string]string, len(ids))
	groups := make(map[float64][]Entry)

	for _, id := range ids {
		p := priorities[id]
		if !(p > 0 && p <= 1) {
			errs = append(errs, fmt.Errorf("%w: %q has priority %v", ErrInvalidPriority, id, p))
			continue
		}
		s := n.Normalize(id)
		if !slug.Valid(s) {
			errs = append(errs, fmt.Errorf("%w: %q normalizes to %q", slug.ErrMalformedIdentifier, id, s))
			continue
		}
		if prev, ok := bySlug[s]; ok {
			errs = append(errs, fmt.Errorf("%w: %q and %q both normalize to %q", slug.ErrSlugCollision, prev, id, s))
			continue
		}
		bySlug[s] = id
		groups[p] = append(groups[p], Entry{
			Identifier: id,
			Slug:       s,
			Loc:        opts.BaseURL + s,
			LastMod:    opts.LastMod,
			ChangeFreq: freq,
			Priority:   p,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	doc := &Document{LastMod: opts.LastMod, Groups: make([]Group, 0, len(groups))}
	for p, entries := range groups {
		slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Slug, b.Slug) })
		doc.Groups = append(doc.Groups, Group{Priority: p, Label: opts.Labels[p], Entries: entries})
	}
	slices.SortFunc(doc.Groups, func(a, b Group) int { return cmp.Compare(b.Priority, a.Priority) })

	return doc, nil
}

// Len returns the total number of entries.
func (d *Document) Len() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Entries)
	}
	return n
}

// Entries returns all entries in output order.
func (d *Document) Entries() []Entry {
	out := make([]Entry, 0, d.Len())
	for _, g := range d.Groups {
		out = append(out, g.Entries...)
	}
	return out
}

// FormatPriority renders p with the fewest digits that round-trip, so 0.9 is
// written as "0.9".
func FormatPriority(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
