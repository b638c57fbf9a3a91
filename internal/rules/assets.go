package rules

import (
	"bytes"
	"path"
	"sort"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// OrphanAssets reports local stylesheets and scripts no page loads.
type OrphanAssets struct{}

func (OrphanAssets) Name() string              { return "orphan-assets" }
func (OrphanAssets) Category() report.Category { return report.CategoryAssets }

func (r OrphanAssets) CheckSite(s *Site) []report.Finding {
	referenced := make(map[string]bool)
	for _, doc := range s.Pages {
		for _, res := range doc.Resources() {
			if rel, ok := htmldoc.ResolveLocal(doc.Path, res.URL); ok {
				referenced[rel] = true
			}
		}
	}
	for _, sheet := range s.Stylesheets {
		for _, imp := range sheet.Imports {
			if rel, ok := htmldoc.ResolveLocal(sheet.Path, imp); ok {
				referenced[rel] = true
			}
		}
	}

	assets := make([]string, 0, len(s.Stylesheets)+len(s.Scripts))
	for _, sheet := range s.Stylesheets {
		assets = append(assets, sheet.Path)
	}
	for rel := range s.Scripts {
		assets = append(assets, rel)
	}
	sort.Strings(assets)

	var out []report.Finding
	for _, rel := range assets {
		if referenced[rel] || mentionedByScript(s.Scripts, rel) {
			continue
		}
		out = append(out, finding(r, report.SeverityInfo, rel, 0, "asset is not referenced by any page"))
	}
	return out
}

// mentionedByScript catches assets loaded dynamically or through ES module
// imports, which page markup does not show.
func mentionedByScript(scripts map[string][]byte, rel string) bool {
	base := []byte(path.Base(rel))
	for other, src := range scripts {
		if other == rel {
			continue
		}
		if bytes.Contains(src, base) {
			return true
		}
	}
	return false
}
