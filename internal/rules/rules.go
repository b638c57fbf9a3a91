// Package rules holds the audit checks shared by the static scanner and
// the live crawler.
package rules

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/doha-kr/siteaudit/internal/cssdoc"
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// Page is the input to page rules.
type Page struct {
	Doc *htmldoc.Document

	// URL and Headers are set when the page was fetched over HTTP.
	URL     string
	Headers http.Header

	// Exists reports whether a site-root-relative path exists on disk. It
	// is nil during crawls, which disables checks that need the file tree.
	Exists func(rel string) bool
}

// Site is the input to site-wide rules.
type Site struct {
	Pages       []*htmldoc.Document
	Stylesheets []*cssdoc.Stylesheet
	Scripts     map[string][]byte // rel path -> content
}

// Rule checks one page.
type Rule interface {
	Name() string
	Category() report.Category
	Check(p *Page) []report.Finding
}

// SiteRule checks the site as a whole.
type SiteRule interface {
	Name() string
	Category() report.Category
	CheckSite(s *Site) []report.Finding
}

// Registry is an ordered set of rules.
type Registry struct {
	page []Rule
	site []SiteRule
}

// Default returns every built-in rule.
func Default() *Registry {
	return &Registry{
		page: []Rule{
			DuplicateResources{},
			CSP{},
			CacheBusting{},
			MissingReferences{},
			Basics{},
			SEO{},
			Adsense{},
			SecurityHeaders{},
		},
		site: []SiteRule{
			CSSClasses{},
			OrphanAssets{},
		},
	}
}

// PageRules returns the page rules in registration order.
func (r *Registry) PageRules() []Rule { return r.page }

// SiteRules returns the site rules in registration order.
func (r *Registry) SiteRules() []SiteRule { return r.site }

// Names returns every rule name, sorted.
func (r *Registry) Names() []string {
	var names []string
	for _, rule := range r.page {
		names = append(names, rule.Name())
	}
	for _, rule := range r.site {
		names = append(names, rule.Name())
	}
	sort.Strings(names)
	return names
}

// Select returns a registry restricted to the named rules. An empty list
// selects everything.
func (r *Registry) Select(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}

	out := &Registry{}
	for _, rule := range r.page {
		if want[rule.Name()] {
			out.page = append(out.page, rule)
			delete(want, rule.Name())
		}
	}
	for _, rule := range r.site {
		if want[rule.Name()] {
			out.site = append(out.site, rule)
			delete(want, rule.Name())
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown rules: %s (available: %s)", strings.Join(unknown, ", "), strings.Join(r.Names(), ", "))
	}
	return out, nil
}

// CheckPage runs every page rule against p.
func (r *Registry) CheckPage(p *Page) []report.Finding {
	var out []report.Finding
	for _, rule := range r.page {
		out = append(out, rule.Check(p)...)
	}
	return out
}

// CheckSite runs every site rule against s.
func (r *Registry) CheckSite(s *Site) []report.Finding {
	var out []report.Finding
	for _, rule := range r.site {
		out = append(out, rule.CheckSite(s)...)
	}
	return out
}

// describer is implemented by both Rule and SiteRule.
type describer interface {
	Name() string
	Category() report.Category
}

// finding builds a finding attributed to rule.
func finding(rule describer, sev report.Severity, file string, line int, msg string) report.Finding {
	return report.Finding{
		Rule:     rule.Name(),
		Category: rule.Category(),
		Severity: sev,
		File:     file,
		Line:     line,
		Message:  msg,
	}
}

// location is where findings for p are filed: the URL when crawled, the
// relative path otherwise.
func (p *Page) location() string {
	if p.URL != "" {
		return p.URL
	}
	return p.Doc.Path
}

func evidence(f report.Finding, text string) report.Finding {
	text = strings.TrimSpace(text)
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	f.Evidence = text
	return f
}

func sortByLine(findings []report.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Line < findings[j].Line
	})
}
