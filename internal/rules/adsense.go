package rules

import (
	"fmt"
	"strings"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// Adsense checks that the ad loader and ad slots agree.
type Adsense struct{}

func (Adsense) Name() string              { return "adsense" }
func (Adsense) Category() report.Category { return report.CategoryAdsense }

const (
	adsenseHost   = "pagead2.googlesyndication.com"
	adsenseLoader = adsenseHost + "/pagead/js/adsbygoogle.js"
)

func (r Adsense) Check(p *Page) []report.Finding {
	var out []report.Finding
	file := p.location()

	var loaders []htmldoc.Resource
	for _, res := range p.Doc.ResourcesOf(htmldoc.ResourceScript) {
		if strings.Contains(res.URL, adsenseLoader) {
			loaders = append(loaders, res)
		}
	}
	slots := p.Doc.Count("ins.adsbygoogle")

	if len(loaders) > 1 {
		f := finding(r, report.SeverityWarning, file, loaders[1].Line(),
			fmt.Sprintf("AdSense loader is included %d times", len(loaders)))
		out = append(out, evidence(f, loaders[1].Tag.Source(p.Doc.Src)))
	}
	if slots > 0 && len(loaders) == 0 {
		out = append(out, finding(r, report.SeverityError, file, 0,
			fmt.Sprintf("%d ad slot(s) but no AdSense loader script", slots)))
	}
	if len(loaders) > 0 && slots == 0 {
		out = append(out, finding(r, report.SeverityInfo, file, loaders[0].Line(),
			"AdSense loader is included but the page has no ad slots"))
	}

	if len(loaders) > 0 {
		for _, m := range p.Doc.HTTPEquiv("content-security-policy") {
			if !allowsHost(ParsePolicy(m.Attrs["content"]), adsenseHost) {
				out = append(out, finding(r, report.SeverityWarning, file, m.Line,
					"Content-Security-Policy script-src does not allow the AdSense loader"))
			}
		}
	}
	return out
}

// allowsHost reports whether the policy's effective script source list
// permits scripts from host.
func allowsHost(policy map[string][]string, host string) bool {
	sources, ok := policy["script-src"]
	if !ok {
		sources, ok = policy["default-src"]
	}
	if !ok {
		return true
	}
	for _, s := range sources {
		s = strings.Trim(strings.ToLower(s), "'")
		switch {
		case s == "*", s == "https:":
			return true
		case strings.Contains(s, host):
			return true
		case strings.HasPrefix(s, "*.") && strings.HasSuffix(host, s[1:]):
			return true
		case strings.HasPrefix(s, "https://*.") && strings.HasSuffix(host, s[len("https://*"):]):
			return true
		}
	}
	return false
}
