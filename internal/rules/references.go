package rules

import (
	"fmt"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// MissingReferences reports local resources that do not exist on disk.
type MissingReferences struct{}

func (MissingReferences) Name() string              { return "missing-references" }
func (MissingReferences) Category() report.Category { return report.CategoryReferences }

func (r MissingReferences) Check(p *Page) []report.Finding {
	if p.Exists == nil {
		return nil
	}
	var out []report.Finding
	for _, res := range p.Doc.Resources() {
		rel, ok := htmldoc.ResolveLocal(p.Doc.Path, res.URL)
		if !ok || p.Exists(rel) {
			continue
		}
		f := finding(r, report.SeverityError, p.location(), res.Line(),
			fmt.Sprintf("referenced %s %s does not exist", res.Kind, res.URL))
		out = append(out, evidence(f, res.Tag.Source(p.Doc.Src)))
	}
	return out
}
