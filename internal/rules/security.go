package rules

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/doha-kr/siteaudit/internal/report"
)

// SecurityHeaders checks response headers of crawled pages and mixed
// content on every page.
type SecurityHeaders struct{}

func (SecurityHeaders) Name() string              { return "security-headers" }
func (SecurityHeaders) Category() report.Category { return report.CategorySecurity }

func (r SecurityHeaders) Check(p *Page) []report.Finding {
	var out []report.Finding
	file := p.location()

	if p.Headers != nil {
		out = append(out, r.headers(p.Headers, file, strings.HasPrefix(p.URL, "https://"))...)
	}

	if p.URL == "" || strings.HasPrefix(p.URL, "https://") {
		for _, res := range p.Doc.Resources() {
			if strings.HasPrefix(strings.ToLower(res.URL), "http://") {
				f := finding(r, report.SeverityError, file, res.Line(),
					fmt.Sprintf("mixed content: %s %s is loaded over http", res.Kind, res.URL))
				out = append(out, evidence(f, res.Tag.Source(p.Doc.Src)))
			}
		}
	}
	return out
}

func (r SecurityHeaders) headers(h http.Header, file string, https bool) []report.Finding {
	var out []report.Finding
	if !strings.EqualFold(h.Get("X-Content-Type-Options"), "nosniff") {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "X-Content-Type-Options: nosniff header is missing"))
	}
	if h.Get("Referrer-Policy") == "" {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "Referrer-Policy header is missing"))
	}
	if https && h.Get("Strict-Transport-Security") == "" {
		out = append(out, finding(r, report.SeverityWarning, file, 0, "Strict-Transport-Security header is missing"))
	}
	if csp := h.Get("Content-Security-Policy"); csp != "" {
		if _, ok := ParsePolicy(csp)["default-src"]; !ok {
			out = append(out, finding(r, report.SeverityInfo, file, 0, "Content-Security-Policy header has no default-src"))
		}
	}
	return out
}
