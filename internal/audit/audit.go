// Package audit compares the catalog's slugs with an existing sitemap so
// migrations can be checked before the new document replaces the old one.
package audit

import (
	"slices"
	"strings"
)

// Report summarizes the drift between the catalog and a reference sitemap.
type Report struct {
	CatalogSize   int
	ReferenceSize int
	// Missing holds catalog slugs absent from the reference.
	Missing []string
	// Extra holds reference slugs absent from the catalog.
	Extra []string
}

// Clean reports whether both sides list the same slugs.
func (r Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0
}

// Compare diffs the catalog slugs against the reference slugs.
func Compare(catalog, reference []string) Report {
	return Report{
		CatalogSize:   len(catalog),
		ReferenceSize: len(reference),
		Missing:       Difference(catalog, reference),
		Extra:         Difference(reference, catalog),
	}
}

// Difference returns the sorted, de-duplicated elements of a that are not in b.
func Difference(a, b []string) []string {
	exclude := make(map[string]struct{}, len(b))
	for _, s := range b {
		exclude[s] = struct{}{}
	}

	out := []string{}
	for _, s := range a {
		if _, ok := exclude[s]; !ok {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SlugsFromLocations strips baseURL from each location. Locations outside
// baseURL are returned whole so they surface as extras.
func SlugsFromLocations(locs []string, baseURL string) []string {
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		s, ok := strings.CutPrefix(loc, baseURL)
		if !ok || s == "" {
			out = append(out, loc)
			continue
		}
		out = append(out, strings.TrimSuffix(s, "/"))
	}
	return out
}
