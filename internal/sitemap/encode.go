package sitemap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNilDocument is returned by Encode when there is no document to write.
var ErrNilDocument = errors.New("nil sitemap document")

const (
	namespace      = "http://www.sitemaps.org/schemas/sitemap/0.9"
	xsiNamespace   = "http://www.w3.org/2001/XMLSchema-instance"
	schemaLocation = namespace + " " + namespace + "/sitemap.xsd"
)

// Encode writes doc as a sitemap XML document. Output depends only on doc, so
// encoding the same document twice yields identical bytes.
func Encode(w io.Writer, doc *Document) error {
	if doc == nil {
		return ErrNilDocument
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}

	enc := xml.NewEncoder(w)
	e := &tokenWriter{enc: enc}

	urlset := xml.StartElement{
		Name: xml.Name{Local: "urlset"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns"}, Value: namespace},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: xsiNamespace},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: schemaLocation},
		},
	}
	e.token(urlset)
	e.text("\n  ")
	e.token(xml.Comment(fmt.Sprintf(" Location pages | Generated: %s | Total Pages: %d ",
		doc.LastMod.Format(DateLayout), doc.Len())))
	e.text("\n\n")

	for _, g := range doc.Groups {
		if g.Label != "" {
			e.text("  ")
			e.token(xml.Comment(fmt.Sprintf(" %s (%s priority) ", sanitizeComment(g.Label), FormatPriority(g.Priority))))
			e.text("\n")
		}
		for _, entry := range g.Entries {
			e.url(entry)
		}
		e.text("\n")
	}

	e.token(urlset.End())
	e.text("\n")

	if e.err != nil {
		return fmt.Errorf("encode sitemap: %w", e.err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush sitemap: %w", err)
	}
	return nil
}

// tokenWriter remembers the first encoding error so the layout code above can
// stay linear.
type tokenWriter struct {
	enc *xml.Encoder
	err error
}

func (t *tokenWriter) token(tok xml.Token) {
	if t.err != nil {
		return
	}
	t.err = t.enc.EncodeToken(tok)
}

func (t *tokenWriter) text(s string) {
	t.token(xml.CharData(s))
}

func (t *tokenWriter) element(name, value string) {
	start := xml.StartElement{Name: xml.Name{Local: name}}
	t.token(start)
	t.text(value)
	t.token(start.End())
}

func (t *tokenWriter) url(e Entry) {
	url := xml.StartElement{Name: xml.Name{Local: "url"}}
	t.text("  ")
	t.token(url)
	t.text("\n    ")
	t.element("loc", e.Loc)
	t.text("\n    ")
	t.element("lastmod", e.LastMod.Format(DateLayout))
	t.text("\n    ")
	t.element("changefreq", e.ChangeFreq)
	t.text("\n    ")
	t.element("priority", FormatPriority(e.Priority))
	t.text("\n  ")
	t.token(url.End())
	t.text("\n")
}

// sanitizeComment keeps labels from terminating the comment early.
func sanitizeComment(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.TrimSuffix(s, "-")
}

// ParseLocations returns the <loc> values of an existing sitemap, in document
// order.
func ParseLocations(r io.Reader) ([]string, error) {
	var set struct {
		URLs []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	if err := xml.NewDecoder(r).Decode(&set); err != nil {
		return nil, fmt.Errorf("parse sitemap: %w", err)
	}

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, nil
}
