// Package htmldoc parses site pages into a queryable DOM plus a source index
// of the tags audits and fixers care about. The index keeps exact byte
// offsets so fixers can splice the original bytes without re-serialising
// the document.
package htmldoc

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tag is an indexed element in source order.
type Tag struct {
	Name  string
	Attrs map[string]string // lower-cased attribute names
	Start int               // byte offset of '<'
	End   int               // byte offset just past the element (end tag included for script/style)
	Line  int
	Text  string // raw content of script and style elements
}

// Attr returns the value of the named attribute.
func (t Tag) Attr(name string) (string, bool) {
	v, ok := t.Attrs[name]
	return v, ok
}

// Source returns the tag's original bytes.
func (t Tag) Source(src []byte) string {
	return string(src[t.Start:t.End])
}

// indexed lists the elements recorded in Document.Tags.
var indexed = map[atom.Atom]bool{
	atom.Script: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Img:    true,
	atom.Style:  true,
	atom.Head:   true,
	atom.Title:  true,
}

// Document is a parsed HTML page.
type Document struct {
	Path string // site-root-relative path or URL
	Src  []byte
	DOM  *goquery.Document
	Tags []Tag

	classes map[string]int // class name -> first line used
	doctype bool
}

// Parse parses src. Path is recorded on findings and used to resolve
// relative references.
func Parse(path string, src []byte) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	d := &Document{
		Path:    path,
		Src:     src,
		DOM:     dom,
		classes: make(map[string]int),
	}
	if err := d.index(); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", path, err)
	}
	return d, nil
}

// index walks the token stream once, recording byte offsets of interesting
// tags and the first line each class name appears on.
func (d *Document) index() error {
	z := html.NewTokenizer(bytes.NewReader(d.Src))
	offset := 0
	open := -1 // index into d.Tags of an unterminated script/style

	for {
		tt := z.Next()
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				if open >= 0 {
					d.Tags[open].End = offset
				}
				return nil
			}
			return z.Err()

		case html.DoctypeToken:
			d.doctype = true

		case html.TextToken:
			if open >= 0 {
				d.Tags[open].Text += string(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			line := LineAt(d.Src, start)
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				key := strings.ToLower(a.Key)
				if _, dup := attrs[key]; !dup {
					attrs[key] = a.Val
				}
			}
			if cls, ok := attrs["class"]; ok {
				for _, c := range strings.Fields(cls) {
					if _, seen := d.classes[c]; !seen {
						d.classes[c] = line
					}
				}
			}
			if !indexed[tok.DataAtom] {
				continue
			}
			d.Tags = append(d.Tags, Tag{
				Name:  tok.Data,
				Attrs: attrs,
				Start: start,
				End:   offset,
				Line:  line,
			})
			if tt == html.StartTagToken && (tok.DataAtom == atom.Script || tok.DataAtom == atom.Style) {
				open = len(d.Tags) - 1
			}

		case html.EndTagToken:
			if open < 0 {
				continue
			}
			name, _ := z.TagName()
			if string(name) == d.Tags[open].Name {
				d.Tags[open].End = offset
				open = -1
			}
		}
	}
}

// HasDoctype reports whether the page declares a doctype.
func (d *Document) HasDoctype() bool {
	return d.doctype
}

// TagsNamed returns indexed tags with the given element name.
func (d *Document) TagsNamed(name string) []Tag {
	var out []Tag
	for _, t := range d.Tags {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

// Head returns the <head> start tag, if present.
func (d *Document) Head() (Tag, bool) {
	heads := d.TagsNamed("head")
	if len(heads) == 0 {
		return Tag{}, false
	}
	return heads[0], true
}

// Find runs a CSS selector against the DOM.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.DOM.Find(selector)
}

// Count returns the number of elements matching selector.
func (d *Document) Count(selector string) int {
	return d.DOM.Find(selector).Length()
}

// Classes returns every class name used on the page mapped to the first
// line it appears on.
func (d *Document) Classes() map[string]int {
	return d.classes
}

// ClassNames returns the page's class names sorted.
func (d *Document) ClassNames() []string {
	names := make([]string, 0, len(d.classes))
	for c := range d.classes {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// Title returns the trimmed document title.
func (d *Document) Title() string {
	return strings.TrimSpace(d.DOM.Find("title").First().Text())
}

// Lang returns the <html lang> attribute.
func (d *Document) Lang() string {
	lang, _ := d.DOM.Find("html").First().Attr("lang")
	return strings.TrimSpace(lang)
}

// Meta returns the content of <meta name=...>, matched case-insensitively.
func (d *Document) Meta(name string) (string, bool) {
	for _, t := range d.TagsNamed("meta") {
		if strings.EqualFold(t.Attrs["name"], name) {
			return t.Attrs["content"], true
		}
	}
	return "", false
}

// HTTPEquiv returns the <meta http-equiv=...> tags with the given name.
func (d *Document) HTTPEquiv(name string) []Tag {
	var out []Tag
	for _, t := range d.TagsNamed("meta") {
		if strings.EqualFold(strings.TrimSpace(t.Attrs["http-equiv"]), name) {
			out = append(out, t)
		}
	}
	return out
}

// Charset reports whether the page declares a character set.
func (d *Document) Charset() bool {
	for _, t := range d.TagsNamed("meta") {
		if _, ok := t.Attrs["charset"]; ok {
			return true
		}
		if strings.EqualFold(t.Attrs["http-equiv"], "content-type") && strings.Contains(strings.ToLower(t.Attrs["content"]), "charset=") {
			return true
		}
	}
	return false
}

// BodyText returns the visible text of <body>: script, style, template and
// noscript contents are skipped and whitespace runs are collapsed.
func (d *Document) BodyText() string {
	body := d.DOM.Find("body")
	if body.Length() == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Template, atom.Noscript:
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range body.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// InlineScript is a <script> without src.
type InlineScript struct {
	Tag     Tag
	Hash    string // sha256 of the whitespace-normalised content
	Preview string // first 100 characters of the normalised content
}

// InlineScripts returns non-empty inline scripts in source order. JSON-LD
// and other data blocks are included since duplicates of those are also
// worth reporting.
func (d *Document) InlineScripts() []InlineScript {
	var out []InlineScript
	for _, t := range d.TagsNamed("script") {
		if _, ok := t.Attrs["src"]; ok {
			continue
		}
		norm := NormalizeScript(t.Text)
		if norm == "" {
			continue
		}
		sum := sha256.Sum256([]byte(norm))
		preview := norm
		if len(preview) > 100 {
			preview = preview[:100]
		}
		out = append(out, InlineScript{
			Tag:     t,
			Hash:    hex.EncodeToString(sum[:]),
			Preview: preview,
		})
	}
	return out
}

// NormalizeScript collapses all whitespace runs to single spaces.
func NormalizeScript(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
