package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// DuplicateResources reports scripts and stylesheets loaded more than once,
// repeated inline scripts, and competing copies of the same library.
type DuplicateResources struct{}

func (DuplicateResources) Name() string              { return "duplicate-resources" }
func (DuplicateResources) Category() report.Category { return report.CategoryDuplicates }

var (
	jqueryPattern    = regexp.MustCompile(`(?i)(^|/)jquery([.-]\d[\w.]*)?(\.slim)?(\.min)?\.js$`)
	analyticsPattern = regexp.MustCompile(`(?i)googletagmanager\.com/gtag/js|google-analytics\.com/(analytics|ga)\.js|googletagmanager\.com/gtm\.js`)
)

func (r DuplicateResources) Check(p *Page) []report.Finding {
	var out []report.Finding
	file := p.location()

	groups := make(map[string][]htmldoc.Resource)
	var order []string
	for _, res := range p.Doc.ResourcesOf(htmldoc.ResourceScript, htmldoc.ResourceStylesheet) {
		key := string(res.Kind) + " " + htmldoc.NormalizeURL(res.URL)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], res)
	}

	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		kind, norm, _ := strings.Cut(key, " ")

		seen := make(map[string]int)
		var variants []string
		for _, res := range group {
			seen[res.URL]++
			if seen[res.URL] == 1 {
				variants = append(variants, res.URL)
				continue
			}
			f := finding(r, report.SeverityError, file, res.Line(),
				fmt.Sprintf("%s %s is included %d times", kind, res.URL, count(group, res.URL)))
			out = append(out, evidence(f, res.Tag.Source(p.Doc.Src)))
		}

		if len(variants) > 1 {
			second := firstWithURL(group, variants[1])
			f := finding(r, report.SeverityWarning, file, second.Line(),
				fmt.Sprintf("%s %s is included in %d variants: %s", kind, norm, len(variants), strings.Join(variants, ", ")))
			out = append(out, evidence(f, second.Tag.Source(p.Doc.Src)))
		}
	}

	byHash := make(map[string]int)
	for _, s := range p.Doc.InlineScripts() {
		byHash[s.Hash]++
		if byHash[s.Hash] == 2 {
			f := finding(r, report.SeverityWarning, file, s.Tag.Line, "inline script is repeated on the page")
			out = append(out, evidence(f, s.Preview))
		}
	}

	out = append(out, r.conflicts(p, "jQuery", jqueryPattern)...)
	out = append(out, r.conflicts(p, "analytics", analyticsPattern)...)
	return out
}

// conflicts reports more than one distinct script matching pattern.
func (r DuplicateResources) conflicts(p *Page, library string, pattern *regexp.Regexp) []report.Finding {
	var urls []string
	var line int
	seen := make(map[string]bool)
	for _, res := range p.Doc.ResourcesOf(htmldoc.ResourceScript) {
		norm := htmldoc.NormalizeURL(res.URL)
		if !pattern.MatchString(norm) || seen[norm] {
			continue
		}
		seen[norm] = true
		urls = append(urls, res.URL)
		if len(urls) == 2 {
			line = res.Line()
		}
	}
	if len(urls) < 2 {
		return nil
	}
	return []report.Finding{finding(r, report.SeverityWarning, p.location(), line,
		fmt.Sprintf("%d different %s loaders are included: %s", len(urls), library, strings.Join(urls, ", ")))}
}

func count(group []htmldoc.Resource, url string) int {
	n := 0
	for _, res := range group {
		if res.URL == url {
			n++
		}
	}
	return n
}

func firstWithURL(group []htmldoc.Resource, url string) htmldoc.Resource {
	for _, res := range group {
		if res.URL == url {
			return res
		}
	}
	return group[0]
}
