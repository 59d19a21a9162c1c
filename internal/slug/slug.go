// Package slug converts location identifiers from compact form
// ("MountWaverley") to the hyphenated lowercase slug used in page URLs
// ("mount-waverley").
//
// # Conversion
//
// The generic rule works from capitalization alone:
//
//	(a) break before every capitalized word except the first:  (.)([A-Z][a-z]+) → $1-$2
//	(b) break between a lowercase letter or digit and a capital: ([a-z0-9])([A-Z]) → $1-$2
//	(c) lowercase the result
//
// Names whose correct slug cannot be derived from capitalization ("McKinnon"
// is one word, not "mc-kinnon") go in the override table, which is consulted
// before the rule. The override table is the permanent escape hatch; the rule
// is not expected to learn every exception.
package slug

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
)

var (
	// ErrMalformedIdentifier is returned when an identifier normalizes to a
	// string that is not a valid slug.
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// ErrSlugCollision is returned when two distinct identifiers normalize to
	// the same slug.
	ErrSlugCollision = errors.New("slug collision")
)

var (
	wordBoundary    = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	acronymBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	validSlug       = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// DefaultOverrides lists the catalog identifiers the generic rule gets wrong,
// or that must stay pinned regardless of future rule changes.
var DefaultOverrides = map[string]string{
	"MelbourneCBD":   "melbourne-cbd",
	"StKilda":        "st-kilda",
	"StKildaEast":    "st-kilda-east",
	"WheelersHillSE": "wheelers-hill-se",
	"McKinnon":       "mckinnon",
}

// Normalizer maps compact-form identifiers to slugs. It is safe for
// concurrent use; the override table is copied on construction and never
// mutated.
type Normalizer struct {
	overrides map[string]string
}

// New creates a Normalizer with the given override table. Pass nil for no
// overrides.
func New(overrides map[string]string) *Normalizer {
	return &Normalizer{overrides: maps.Clone(overrides)}
}

// Default returns a Normalizer using DefaultOverrides.
func Default() *Normalizer {
	return New(DefaultOverrides)
}

// Normalize returns the slug for identifier. An exact, case-sensitive match in
// the override table wins over the generic rule.
func (n *Normalizer) Normalize(identifier string) string {
	if s, ok := n.overrides[identifier]; ok {
		return s
	}
	return Generic(identifier)
}

// Overridden reports whether identifier is resolved by the override table.
func (n *Normalizer) Overridden(identifier string) bool {
	_, ok := n.overrides[identifier]
	return ok
}

// Generic applies the capitalization rule without consulting any overrides.
func Generic(identifier string) string {
	s := wordBoundary.ReplaceAllString(identifier, "${1}-${2}")
	s = acronymBoundary.ReplaceAllString(s, "${1}-${2}")
	return strings.ToLower(s)
}

// Valid reports whether s is a well-formed slug: lowercase alphanumeric
// segments joined by single hyphens.
func Valid(s string) bool {
	return validSlug.MatchString(s)
}

// Validate normalizes every identifier and checks that each result is a
// well-formed slug and that no two identifiers share a slug. It is meant to run
// once over the whole catalog at startup. All problems are reported together.
func (n *Normalizer) Validate(identifiers []string) error {
	var errs []error
	seen := make(map[string]string, len(identifiers))

	for _, id := range identifiers {
		s := n.Normalize(id)
		if !Valid(s) {
			errs = append(errs, fmt.Errorf("%w: %q normalizes to %q", ErrMalformedIdentifier, id, s))
			continue
		}
		if prev, ok := seen[s]; ok && prev != id {
			errs = append(errs, fmt.Errorf("%w: %q and %q both normalize to %q", ErrSlugCollision, prev, id, s))
			continue
		}
		seen[s] = id
	}

	return errors.Join(errs...)
}
