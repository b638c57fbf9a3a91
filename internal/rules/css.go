package rules

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/doha-kr/siteaudit/internal/cssdoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

// CSSClasses cross-references classes used by pages with those defined by
// stylesheets.
type CSSClasses struct{}

func (CSSClasses) Name() string              { return "css-classes" }
func (CSSClasses) Category() report.Category { return report.CategoryCSS }

// externalClasses are styled by third-party scripts rather than site CSS.
var externalClasses = map[string]bool{
	"adsbygoogle": true,
}

var externalPrefixes = []string{"fa-", "js-", "gtm-"}

type classUse struct {
	file  string
	line  int
	pages []string
}

func (r CSSClasses) CheckSite(s *Site) []report.Finding {
	var out []report.Finding

	sheets := append([]*cssdoc.Stylesheet(nil), s.Stylesheets...)
	for _, doc := range s.Pages {
		for _, style := range doc.TagsNamed("style") {
			sheets = append(sheets, cssdoc.Parse(doc.Path, []byte(style.Text)))
		}
	}

	defined := make(map[string]bool)
	for _, sheet := range sheets {
		for c := range sheet.Classes() {
			defined[c] = true
		}
	}

	used := make(map[string]*classUse)
	for _, doc := range s.Pages {
		for c, line := range doc.Classes() {
			u, ok := used[c]
			if !ok {
				u = &classUse{file: doc.Path, line: line}
				used[c] = u
			}
			u.pages = append(u.pages, doc.Path)
		}
	}

	for _, c := range sortedClassKeys(used) {
		if defined[c] || isExternalClass(c) {
			continue
		}
		u := used[c]
		sort.Strings(u.pages)
		f := finding(r, report.SeverityInfo, u.file, u.line,
			fmt.Sprintf("class %q is used by %d page(s) but no stylesheet defines it", c, len(u.pages)))
		out = append(out, evidence(f, strings.Join(u.pages, ", ")))
	}

	for _, sheet := range s.Stylesheets {
		for _, c := range sheet.ClassNames() {
			if used[c] != nil || usedByScript(s.Scripts, c) {
				continue
			}
			out = append(out, finding(r, report.SeverityInfo, sheet.Path, sheet.Classes()[c],
				fmt.Sprintf("class .%s is defined but never used", c)))
		}
		for _, d := range sheet.DuplicateSelectors() {
			where := ""
			if d.Context != "" {
				where = " inside " + d.Context
			}
			lines := make([]string, len(d.Lines))
			for i, l := range d.Lines {
				lines[i] = fmt.Sprint(l)
			}
			out = append(out, finding(r, report.SeverityWarning, sheet.Path, d.Lines[1],
				fmt.Sprintf("selector %s is defined %d times%s (lines %s)", d.Selector, len(d.Lines), where, strings.Join(lines, ", "))))
		}
	}
	return out
}

func isExternalClass(c string) bool {
	if externalClasses[c] {
		return true
	}
	for _, p := range externalPrefixes {
		if strings.HasPrefix(c, p) {
			return true
		}
	}
	return false
}

// usedByScript reports whether any script mentions the class as a quoted
// string or in a selector, e.g. classList.add('active') or '.active'.
func usedByScript(scripts map[string][]byte, class string) bool {
	needles := [][]byte{
		[]byte(`'` + class + `'`),
		[]byte(`"` + class + `"`),
		[]byte("`" + class + "`"),
		[]byte("." + class),
		[]byte(" " + class + `"`),
		[]byte(" " + class + `'`),
	}
	for _, src := range scripts {
		for _, n := range needles {
			if bytes.Contains(src, n) {
				return true
			}
		}
	}
	return false
}

func sortedClassKeys(m map[string]*classUse) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
