// Package catalog loads the hand-maintained table of location identifiers and
// their sitemap priorities.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"gopkg.in/yaml.v2"
)

//go:embed locations.yaml
var defaultCatalog []byte

var (
	// ErrDuplicateIdentifier is returned when an identifier is listed twice.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrUnknownIdentifier is returned when a group member is not in the
	// location list.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrMissingPriority is returned when a location belongs to no priority
	// group and no fallback priority is configured.
	ErrMissingPriority = errors.New("missing priority")

	// ErrInvalidPriority is returned for priorities outside (0, 1].
	ErrInvalidPriority = errors.New("invalid priority")
)

// Group is a set of locations sharing one priority.
type Group struct {
	Priority float64  `yaml:"priority"`
	Label    string   `yaml:"label"`
	Members  []string `yaml:"members"`
}

// Catalog is the parsed input table. It is not mutated after Load returns.
type Catalog struct {
	Locations []string `yaml:"locations"`
	Groups    []Group  `yaml:"groups"`

	priorities map[string]float64
}

// Options controls catalog validation.
type Options struct {
	// DefaultPriority, when non-zero, is assigned to locations that appear in
	// no group. When zero, such locations are an error.
	DefaultPriority float64
}

// Default returns the catalog embedded in the binary.
func Default(opts Options) (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog), opts)
}

// LoadFile reads a catalog from path.
func LoadFile(path string, opts Options) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load parses a YAML catalog and validates it.
func Load(r io.Reader, opts Options) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := c.index(opts); err != nil {
		return nil, err
	}
	return &c, nil
}

// index validates the catalog and builds the priority lookup.
func (c *Catalog) index(opts Options) error {
	var errs []error

	known := make(map[string]bool, len(c.Locations))
	for _, id := range c.Locations {
		if known[id] {
			errs = append(errs, fmt.Errorf("%w: %q listed twice in locations", ErrDuplicateIdentifier, id))
		}
		known[id] = true
	}

	c.priorities = make(map[string]float64, len(c.Locations))
	for _, g := range c.Groups {
		if !validPriority(g.Priority) {
			errs = append(errs, fmt.Errorf("%w: group %q has priority %v", ErrInvalidPriority, g.Label, g.Priority))
			continue
		}
		for _, id := range g.Members {
			if !known[id] {
				errs = append(errs, fmt.Errorf("%w: %q in group %q", ErrUnknownIdentifier, id, g.Label))
				continue
			}
			if p, ok := c.priorities[id]; ok {
				errs = append(errs, fmt.Errorf("%w: %q has priorities %v and %v", ErrDuplicateIdentifier, id, p, g.Priority))
				continue
			}
			c.priorities[id] = g.Priority
		}
	}

	if opts.DefaultPriority != 0 && !validPriority(opts.DefaultPriority) {
		errs = append(errs, fmt.Errorf("%w: default priority %v", ErrInvalidPriority, opts.DefaultPriority))
	}

	for _, id := range c.Locations {
		if _, ok := c.priorities[id]; ok {
			continue
		}
		if opts.DefaultPriority == 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrMissingPriority, id))
			continue
		}
		c.priorities[id] = opts.DefaultPriority
	}

	return errors.Join(errs...)
}

// Priorities returns a copy of the identifier → priority map.
func (c *Catalog) Priorities() map[string]float64 {
	return maps.Clone(c.priorities)
}

// Labels returns the label for each priority. When several groups share a
// priority, the first non-empty label wins.
func (c *Catalog) Labels() map[float64]string {
	out := make(map[float64]string, len(c.Groups))
	for _, g := range c.Groups {
		if out[g.Priority] == "" && g.Label != "" {
			out[g.Priority] = g.Label
		}
	}
	return out
}

// Len returns the number of locations.
func (c *Catalog) Len() int { return len(c.Locations) }

func validPriority(p float64) bool {
	return p > 0 && p <= 1
}

// Source loads a catalog from a file, or the embedded default when Path is
// empty. It implements pipeline.CatalogSource.
type Source struct {
	Path    string
	Options Options
}

// LoadCatalog reads and validates the configured catalog.
func (s Source) LoadCatalog() (*Catalog, error) {
	if s.Path == "" {
		return Default(s.Options)
	}
	return LoadFile(s.Path, s.Options)
}
