// Command audit checks the location catalog before a sitemap migration: every
// identifier must normalize to a distinct slug, and the slugs are compared with
// an existing sitemap so added or dropped pages are visible up front.
//
// Usage:
//
//	go run ./cmd/audit -reference public/sitemap-locations.xml
//	go run ./cmd/audit -list
//	go run ./cmd/audit -reference old.xml -strict   # exit 1 on any drift
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/couchcryptid/location-sitemap/internal/audit"
	"github.com/couchcryptid/location-sitemap/internal/catalog"
	"github.com/couchcryptid/location-sitemap/internal/config"
	"github.com/couchcryptid/location-sitemap/internal/pipeline"
	"github.com/couchcryptid/location-sitemap/internal/sitemap"
	"github.com/couchcryptid/location-sitemap/internal/slug"
	"github.com/joho/godotenv"
)

// phase tracks pass/fail for an audit phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	reference string
	list      bool
	strict    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.reference, "reference", "", "existing sitemap XML to compare the catalog against")
	flag.BoolVar(&opts.list, "list", false, "print every catalog slug, numbered")
	flag.BoolVar(&opts.strict, "strict", false, "treat reference drift as a failure")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before reading the environment")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "FATAL: load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	if code := run(os.Stdout, cfg, opts); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, cfg *config.Config, opts options) int {
	fmt.Fprintln(out, "=== Location Catalog Audit ===")
	fmt.Fprintln(out)

	c, err := catalog.Source{
		Path:    cfg.CatalogPath,
		Options: catalog.Options{DefaultPriority: cfg.DefaultPriority},
	}.LoadCatalog()
	if err != nil {
		fmt.Fprintf(out, "FATAL: load catalog: %v\n", err)
		return 1
	}

	n := slug.Default()
	builder := pipeline.NewBuilder(n, sitemap.Options{
		BaseURL:    cfg.BaseURL,
		LastMod:    cfg.LastMod,
		ChangeFreq: cfg.ChangeFreq,
	}, nil)
	slugs := builder.Slugs(c)

	phases := []*phase{
		checkNormalization(c, n),
		checkOverrides(c, n),
	}

	// Entry count is only meaningful when the document would build.
	emitted := -1
	if phases[0].passed() {
		if doc, err := builder.Build(c); err != nil {
			phases[0].errorf("%v", err)
		} else {
			emitted = doc.Len()
		}
	}

	var report *audit.Report
	if opts.reference != "" {
		p, r := checkReference(slugs, opts.reference, cfg.BaseURL, opts.strict)
		phases = append(phases, p)
		report = r
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total locations: %d\n", c.Len())
	if emitted >= 0 {
		fmt.Fprintf(out, "Sitemap entries: %d\n", emitted)
	}
	if report != nil {
		fmt.Fprintf(out, "Reference sitemap entries: %d\n", report.ReferenceSize)
		printList(out, "Missing from reference", report.Missing)
		printList(out, "Not in catalog", report.Extra)
	}

	for _, p := range phases {
		if len(p.errors) == 0 && len(p.notes) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		for _, note := range p.notes {
			fmt.Fprintf(out, "  note: %s\n", note)
		}
	}

	if opts.list {
		sorted := slices.Sorted(slices.Values(slugs))
		fmt.Fprintf(out, "\nAll %d locations as slugs:\n", len(sorted))
		for i, s := range sorted {
			fmt.Fprintf(out, "%3d. %s\n", i+1, s)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAudit passed.")
		return 0
	}
	fmt.Fprintln(out, "\nAudit FAILED.")
	return 1
}

func printList(out io.Writer, title string, items []string) {
	fmt.Fprintf(out, "%s (%d):\n", title, len(items))
	for _, s := range items {
		fmt.Fprintf(out, "  %s\n", s)
	}
}

// ── Phase 1: Normalization ──
// Every identifier must map to a valid, unique slug.

func checkNormalization(c *catalog.Catalog, n *slug.Normalizer) *phase {
	p := &phase{name: "Phase 1: Normalization (slug invariants)"}
	if err := n.Validate(c.Locations); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				p.errorf("%v", e)
			}
		} else {
			p.errorf("%v", err)
		}
	}
	return p
}

// ── Phase 2: Override table ──
// Overrides that no longer name a catalog identifier are dead weight; overrides
// that change the generic result are listed for review.

func checkOverrides(c *catalog.Catalog, n *slug.Normalizer) *phase {
	p := &phase{name: "Phase 2: Override table"}

	inCatalog := make(map[string]bool, len(c.Locations))
	for _, id := range c.Locations {
		inCatalog[id] = true
	}

	ids := make([]string, 0, len(slug.DefaultOverrides))
	for id := range slug.DefaultOverrides {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if !inCatalog[id] {
			p.notef("override %q is not in the catalog", id)
			continue
		}
		if generic := slug.Generic(id); generic != n.Normalize(id) {
			p.notef("%s: override %q replaces generic %q", id, n.Normalize(id), generic)
		}
	}
	return p
}

// ── Phase 3: Reference drift ──
// Compares catalog slugs against the <loc> entries of an existing sitemap.

func checkReference(slugs []string, path, baseURL string, strict bool) (*phase, *audit.Report) {
	p := &phase{name: "Phase 3: Reference drift (catalog vs sitemap)"}

	f, err := os.Open(path)
	if err != nil {
		p.errorf("open reference: %v", err)
		return p, nil
	}
	defer f.Close()

	locs, err := sitemap.ParseLocations(f)
	if err != nil {
		p.errorf("%s: %v", path, err)
		return p, nil
	}

	r := audit.Compare(slugs, audit.SlugsFromLocations(locs, baseURL))
	if strict {
		for _, s := range r.Missing {
			p.errorf("%s missing from reference", s)
		}
		for _, s := range r.Extra {
			p.errorf("%s in reference but not in catalog", s)
		}
	}
	return p, &r
}
