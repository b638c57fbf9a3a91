package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/doha-kr/siteaudit/internal/report"
)

// CSP checks the Content-Security-Policy meta tag.
type CSP struct{}

func (CSP) Name() string              { return "csp" }
func (CSP) Category() report.Category { return report.CategoryCSP }

// knownDirectives are the CSP level 3 directive names.
var knownDirectives = map[string]bool{
	"default-src": true, "script-src": true, "script-src-elem": true, "script-src-attr": true,
	"style-src": true, "style-src-elem": true, "style-src-attr": true, "img-src": true,
	"font-src": true, "connect-src": true, "media-src": true, "object-src": true,
	"frame-src": true, "child-src": true, "worker-src": true, "manifest-src": true,
	"prefetch-src": true, "base-uri": true, "form-action": true, "frame-ancestors": true,
	"upgrade-insecure-requests": true, "block-all-mixed-content": true, "sandbox": true,
	"report-uri": true, "report-to": true, "require-trusted-types-for": true, "trusted-types": true,
}

// metaIgnored lists directives browsers ignore when delivered via <meta>.
var metaIgnored = map[string]bool{
	"frame-ancestors": true,
	"report-uri":      true,
	"sandbox":         true,
}

// ParsePolicy splits a policy into directive name -> sources. Directive
// names are lower-cased; repeated directives keep the first occurrence, as
// browsers do.
func ParsePolicy(policy string) map[string][]string {
	out := make(map[string][]string)
	for _, part := range strings.Split(policy, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		if _, dup := out[name]; dup {
			continue
		}
		out[name] = fields[1:]
	}
	return out
}

func (r CSP) Check(p *Page) []report.Finding {
	file := p.location()
	metas := p.Doc.HTTPEquiv("content-security-policy")

	var out []report.Finding
	if len(metas) == 0 {
		line := 0
		if head, ok := p.Doc.Head(); ok {
			line = head.Line
		}
		out = append(out, finding(r, report.SeverityWarning, file, line, "Content-Security-Policy meta tag is missing"))
	}
	if len(metas) > 1 {
		f := finding(r, report.SeverityError, file, metas[1].Line,
			fmt.Sprintf("%d Content-Security-Policy meta tags; browsers enforce every one of them", len(metas)))
		out = append(out, evidence(f, metas[1].Source(p.Doc.Src)))
	}

	for _, m := range metas {
		content := strings.TrimSpace(m.Attrs["content"])
		src := m.Source(p.Doc.Src)
		switch {
		case content == "":
			out = append(out, evidence(finding(r, report.SeverityError, file, m.Line, "Content-Security-Policy meta tag has no content"), src))
			continue
		case strings.ContainsAny(content, "<>"):
			out = append(out, evidence(finding(r, report.SeverityError, file, m.Line, "Content-Security-Policy content contains markup; the meta tag is malformed"), src))
			continue
		}

		policy := ParsePolicy(content)
		if _, ok := policy["default-src"]; !ok {
			if _, ok := policy["script-src"]; !ok {
				out = append(out, evidence(finding(r, report.SeverityError, file, m.Line, "policy defines neither default-src nor script-src"), src))
			}
		}
		for _, name := range sortedKeys(policy) {
			switch {
			case !knownDirectives[name]:
				out = append(out, finding(r, report.SeverityWarning, file, m.Line, fmt.Sprintf("unknown directive %q", name)))
			case metaIgnored[name]:
				out = append(out, finding(r, report.SeverityInfo, file, m.Line, fmt.Sprintf("directive %s is ignored when delivered in a meta tag", name)))
			}
		}
	}

	body := p.Doc.BodyText()
	for _, marker := range []string{"script-src", "default-src", "Content-Security-Policy"} {
		if strings.Contains(body, marker) {
			out = append(out, finding(r, report.SeverityError, file, 0,
				fmt.Sprintf("policy text %q is visible in the page body", marker)))
			break
		}
	}

	sortByLine(out)
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
