package rules

import (
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// Basics checks the document skeleton every page needs.
type Basics struct{}

func (Basics) Name() string              { return "basics" }
func (Basics) Category() report.Category { return report.CategoryBasics }

func (r Basics) Check(p *Page) []report.Finding {
	var out []report.Finding
	file := p.location()
	doc := p.Doc

	if !doc.HasDoctype() {
		out = append(out, finding(r, report.SeverityWarning, file, 1, "document has no <!DOCTYPE html>"))
	}
	if doc.Lang() == "" {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "<html> element has no lang attribute"))
	}
	if !doc.Charset() {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "no <meta charset> declaration"))
	}
	if _, ok := doc.Meta("viewport"); !ok {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "no viewport meta tag"))
	}
	if doc.Title() == "" {
		out = append(out, finding(r, report.SeverityError, file, 0, "page has no title"))
	}
	if desc, ok := doc.Meta("description"); !ok || desc == "" {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "no meta description"))
	}
	if len(doc.ResourcesOf(htmldoc.ResourceIcon)) == 0 {
		out = append(out, finding(r, report.SeverityInfo, file, 0, "no favicon link"))
	}
	return out
}
