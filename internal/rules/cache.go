package rules

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// CacheBusting checks that local CSS and JS carry a version parameter and
// that every reference to one asset on a page uses the same version.
// Different assets may carry different versions.
type CacheBusting struct{}

func (CacheBusting) Name() string              { return "cache-busting" }
func (CacheBusting) Category() report.Category { return report.CategoryCache }

// assetVersions collects the versions one asset is referenced with.
type assetVersions struct {
	versions []string
	line     int // where the second version first appears
}

func (r CacheBusting) Check(p *Page) []report.Finding {
	var out []report.Finding
	file := p.location()

	assets := make(map[string]*assetVersions)
	var order []string
	for _, res := range p.Doc.ResourcesOf(htmldoc.ResourceScript, htmldoc.ResourceStylesheet) {
		if !htmldoc.IsLocal(res.URL) {
			continue
		}
		v := htmldoc.ExtractVersion(res.URL)
		if v == "" {
			out = append(out, finding(r, report.SeverityInfo, file, res.Line(),
				fmt.Sprintf("local %s %s has no cache-busting version", res.Kind, res.URL)))
			continue
		}
		key := assetKey(p.Doc.Path, res.URL)
		a := assets[key]
		if a == nil {
			a = &assetVersions{}
			assets[key] = a
			order = append(order, key)
		}
		if !slices.Contains(a.versions, v) {
			a.versions = append(a.versions, v)
			if len(a.versions) == 2 {
				a.line = res.Line()
			}
		}
	}

	for _, key := range order {
		a := assets[key]
		if len(a.versions) < 2 {
			continue
		}
		list := slices.Clone(a.versions)
		sort.Strings(list)
		out = append(out, finding(r, report.SeverityWarning, file, a.line,
			fmt.Sprintf("%s is referenced with different cache-busting versions: %s", key, strings.Join(list, ", "))))
	}
	return out
}

// assetKey identifies an asset independent of how the page spells the
// reference: relative and root-absolute paths resolve to the same key and
// minified variants fold onto the plain file.
func assetKey(pagePath, u string) string {
	if resolved, ok := htmldoc.ResolveLocal(pagePath, u); ok {
		return "/" + htmldoc.NormalizeURL(resolved)
	}
	return htmldoc.NormalizeURL(u)
}
