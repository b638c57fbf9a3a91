package rules

import (
	"fmt"
	"strings"

	"github.com/doha-kr/siteaudit/internal/report"
)

// SEO checks headings, image alternatives and canonical links.
type SEO struct{}

func (SEO) Name() string              { return "seo" }
func (SEO) Category() report.Category { return report.CategorySEO }

const (
	maxTitleLength       = 60
	maxDescriptionLength = 160
)

func (r SEO) Check(p *Page) []report.Finding {
	var out []report.Finding
	file := p.location()
	doc := p.Doc

	switch n := doc.Count("h1"); {
	case n == 0:
		out = append(out, finding(r, report.SeverityWarning, file, 0, "page has no <h1>"))
	case n > 1:
		out = append(out, finding(r, report.SeverityWarning, file, 0, fmt.Sprintf("page has %d <h1> elements", n)))
	}

	for _, img := range doc.TagsNamed("img") {
		if _, ok := img.Attr("alt"); !ok {
			f := finding(r, report.SeverityWarning, file, img.Line, fmt.Sprintf("image %s has no alt attribute", img.Attrs["src"]))
			out = append(out, evidence(f, img.Source(doc.Src)))
		}
	}

	if doc.Count(`link[rel="canonical"]`) == 0 {
		out = append(out, finding(r, report.SeverityInfo, file, 0, "no canonical link"))
	}
	if title := doc.Title(); len([]rune(title)) > maxTitleLength {
		out = append(out, finding(r, report.SeverityInfo, file, 0, fmt.Sprintf("title is %d characters; search results truncate after about %d", len([]rune(title)), maxTitleLength)))
	}
	if desc, ok := doc.Meta("description"); ok && len([]rune(strings.TrimSpace(desc))) > maxDescriptionLength {
		out = append(out, finding(r, report.SeverityInfo, file, 0, fmt.Sprintf("meta description is longer than %d characters", maxDescriptionLength)))
	}
	return out
}
