package rules

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doha-kr/siteaudit/internal/cssdoc"
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/report"
)

func page(t *testing.T, path, src string) *Page {
	t.Helper()
	doc, err := htmldoc.Parse(path, []byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return &Page{Doc: doc}
}

// brief is a comparable projection of a finding.
type brief struct {
	Severity report.Severity
	Line     int
	Message  string
}

func briefs(findings []report.Finding) []brief {
	out := make([]brief, 0, len(findings))
	for _, f := range findings {
		out = append(out, brief{f.Severity, f.Line, f.Message})
	}
	return out
}

const wellFormed = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width">
<meta http-equiv="Content-Security-Policy" content="default-src 'self'">
<title>Tarot</title>
<meta name="description" content="Daily tarot reading">
<link rel="icon" href="/favicon.ico">
<link rel="canonical" href="https://doha.kr/fortune/tarot/">
</head>
<body><h1>Tarot</h1></body>
</html>`

func TestWellFormedPageIsClean(t *testing.T) {
	p := page(t, "fortune/tarot/index.html", wellFormed)
	p.Exists = func(string) bool { return true }
	if got := Default().CheckPage(p); len(got) != 0 {
		t.Errorf("expected no findings, got %+v", briefs(got))
	}
}

func TestDuplicateResources(t *testing.T) {
	p := page(t, "index.html", `<html><head>
<link rel="stylesheet" href="/css/a.css?v=1">
<link rel="stylesheet" href="/css/a.min.css?v=2">
<script src="/js/app.js"></script>
</head><body>
<script src="/js/app.js"></script>
<script src="/js/app.js"></script>
<script src="https://code.jquery.com/jquery-3.6.0.min.js"></script>
<script src="/js/jquery.js"></script>
<script>var a = 1;</script>
<script>var   a = 1;</script>
</body></html>`)

	got := briefs(DuplicateResources{}.Check(p))
	want := []brief{
		{report.SeverityWarning, 3, "stylesheet /css/a.css is included in 2 variants: /css/a.css?v=1, /css/a.min.css?v=2"},
		{report.SeverityError, 6, "script /js/app.js is included 3 times"},
		{report.SeverityError, 7, "script /js/app.js is included 3 times"},
		{report.SeverityWarning, 11, "inline script is repeated on the page"},
		{report.SeverityWarning, 9, "2 different jQuery loaders are included: https://code.jquery.com/jquery-3.6.0.min.js, /js/jquery.js"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestCSP(t *testing.T) {
	tests := []struct {
		name string
		head string
		body string
		want []string
	}{
		{"missing", ``, ``, []string{"Content-Security-Policy meta tag is missing"}},
		{"multiple", `<meta http-equiv="Content-Security-Policy" content="default-src 'self'">
<meta http-equiv="content-security-policy" content="script-src 'self'">`, ``,
			[]string{"2 Content-Security-Policy meta tags; browsers enforce every one of them"}},
		{"no fetch directive", `<meta http-equiv="Content-Security-Policy" content="img-src *">`, ``,
			[]string{"policy defines neither default-src nor script-src"}},
		{"markup in content", `<meta http-equiv="Content-Security-Policy" content="default-src 'self' <script>">`, ``,
			[]string{"Content-Security-Policy content contains markup; the meta tag is malformed"}},
		{"unknown and ignored directives", `<meta http-equiv="Content-Security-Policy" content="default-src 'self'; frame-ancestors 'none'; scirpt-src x">`, ``,
			[]string{"directive frame-ancestors is ignored when delivered in a meta tag", `unknown directive "scirpt-src"`}},
		{"exposed in body", `<meta http-equiv="Content-Security-Policy" content="default-src 'self'">`,
			`<p>script-src 'self' https://pagead2.googlesyndication.com"></p>`,
			[]string{`policy text "script-src" is visible in the page body`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := page(t, "x.html", "<html><head>"+tt.head+"</head><body>"+tt.body+"</body></html>")
			var got []string
			for _, f := range (CSP{}).Check(p) {
				got = append(got, f.Message)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	got := ParsePolicy("default-src 'self'; Script-Src 'self' https://a.test;; script-src x")
	want := map[string][]string{
		"default-src": {"'self'"},
		"script-src":  {"'self'", "https://a.test"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParsePolicy mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheBusting(t *testing.T) {
	p := page(t, "tests/index.html", `<html><head>
<link rel="stylesheet" href="/css/a.css?v=20250101">
<link rel="stylesheet" href="https://cdn.test/x.css">
<script src="/js/app.js?v=20250102"></script>
<script src="/js/b.js"></script>
<link rel="stylesheet" href="../css/a.min.css?v=20250103">
<script src="/js/app.js?v=20250102"></script>
</head></html>`)
	got := briefs(CacheBusting{}.Check(p))
	want := []brief{
		{report.SeverityInfo, 5, "local script /js/b.js has no cache-busting version"},
		{report.SeverityWarning, 6, "/css/a.css is referenced with different cache-busting versions: 20250101, 20250103"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheBustingDistinctAssetsMayDiffer(t *testing.T) {
	p := page(t, "index.html", `<html><head>
<link rel="stylesheet" href="/css/a.css?v=1">
<script src="/js/app.js?v=2"></script>
</head></html>`)
	if got := (CacheBusting{}).Check(p); len(got) != 0 {
		t.Errorf("findings = %+v, want none", got)
	}
}

func TestMissingReferences(t *testing.T) {
	p := page(t, "tests/mbti/index.html", `<html><head>
<link rel="stylesheet" href="../../css/a.css">
<script src="test.js"></script>
<script src="https://cdn.test/lib.js"></script>
</head><body><img src="/images/missing.png" alt=""></body></html>`)
	existing := map[string]bool{"css/a.css": true, "tests/mbti/test.js": true}
	p.Exists = func(rel string) bool { return existing[rel] }

	got := briefs(MissingReferences{}.Check(p))
	want := []brief{{report.SeverityError, 5, "referenced image /images/missing.png does not exist"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}

	p.Exists = nil
	if got := (MissingReferences{}).Check(p); got != nil {
		t.Error("crawled pages should skip the file-system check")
	}
}

func TestBasics(t *testing.T) {
	p := page(t, "x.html", `<html><head><title> </title></head><body></body></html>`)
	var got []string
	for _, f := range (Basics{}).Check(p) {
		got = append(got, f.Message)
	}
	want := []string{
		"document has no <!DOCTYPE html>",
		"<html> element has no lang attribute",
		"no <meta charset> declaration",
		"no viewport meta tag",
		"page has no title",
		"no meta description",
		"no favicon link",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestSEO(t *testing.T) {
	p := page(t, "x.html", `<html><head><title>`+strings.Repeat("t", 61)+`</title></head>
<body><h1>a</h1><h1>b</h1>
<img src="/a.png">
<img src="/b.png" alt="">
</body></html>`)
	got := briefs(SEO{}.Check(p))
	want := []brief{
		{report.SeverityWarning, 0, "page has 2 <h1> elements"},
		{report.SeverityWarning, 3, "image /a.png has no alt attribute"},
		{report.SeverityInfo, 0, "no canonical link"},
		{report.SeverityInfo, 0, "title is 61 characters; search results truncate after about 60"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestAdsense(t *testing.T) {
	loader := `<script async src="https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js?client=ca-pub-1"></script>`
	tests := []struct {
		name string
		html string
		want []string
	}{
		{"slots without loader", `<html><body><ins class="adsbygoogle"></ins></body></html>`,
			[]string{"1 ad slot(s) but no AdSense loader script"}},
		{"loader twice", "<html><head>" + loader + loader + `</head><body><ins class="adsbygoogle"></ins></body></html>`,
			[]string{"AdSense loader is included 2 times"}},
		{"loader without slots", "<html><head>" + loader + "</head></html>",
			[]string{"AdSense loader is included but the page has no ad slots"}},
		{"blocked by csp", `<html><head><meta http-equiv="Content-Security-Policy" content="script-src 'self'">` + loader +
			`</head><body><ins class="adsbygoogle"></ins></body></html>`,
			[]string{"Content-Security-Policy script-src does not allow the AdSense loader"}},
		{"allowed by wildcard", `<html><head><meta http-equiv="Content-Security-Policy" content="script-src 'self' https://*.googlesyndication.com">` + loader +
			`</head><body><ins class="adsbygoogle"></ins></body></html>`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range (Adsense{}).Check(page(t, "x.html", tt.html)) {
				got = append(got, f.Message)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	p := page(t, "index.html", `<html><head><script src="http://cdn.test/a.js"></script></head></html>`)
	p.URL = "https://doha.kr/"
	p.Headers = http.Header{}
	p.Headers.Set("Referrer-Policy", "strict-origin")

	var got []string
	for _, f := range (SecurityHeaders{}).Check(p) {
		got = append(got, f.Message)
		if f.File != "https://doha.kr/" {
			t.Errorf("crawl finding filed under %q", f.File)
		}
	}
	want := []string{
		"X-Content-Type-Options: nosniff header is missing",
		"Strict-Transport-Security header is missing",
		"mixed content: script http://cdn.test/a.js is loaded over http",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestCSSClasses(t *testing.T) {
	a := page(t, "a.html", `<html><head><style>.inline-only { color: red }</style></head>
<body class="inline-only"><div class="card adsbygoogle"></div><div class="ghost"></div></body></html>`).Doc
	b := page(t, "b.html", `<html><body><p class="card ghost toggled"></p></body></html>`).Doc

	site := &Site{
		Pages: []*htmldoc.Document{a, b},
		Stylesheets: []*cssdoc.Stylesheet{
			cssdoc.Parse("css/site.css", []byte(".card { }\n.unused { }\n.toggled { }\n.active { }\n.card { }\n")),
		},
		Scripts: map[string][]byte{"js/app.js": []byte(`el.classList.add('active')`)},
	}

	got := briefs(CSSClasses{}.CheckSite(site))
	want := []brief{
		{report.SeverityInfo, 2, `class "ghost" is used by 2 page(s) but no stylesheet defines it`},
		{report.SeverityInfo, 2, "class .unused is defined but never used"},
		{report.SeverityWarning, 5, "selector .card is defined 2 times (lines 1, 5)"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
}

func TestOrphanAssets(t *testing.T) {
	index := page(t, "index.html", `<html><head><link rel="stylesheet" href="css/site.css"><script src="/js/app.js"></script></head></html>`).Doc
	site := &Site{
		Pages: []*htmldoc.Document{index},
		Stylesheets: []*cssdoc.Stylesheet{
			cssdoc.Parse("css/site.css", []byte(`@import "reset.css";`)),
			cssdoc.Parse("css/reset.css", nil),
			cssdoc.Parse("css/old.css", nil),
		},
		Scripts: map[string][]byte{
			"js/app.js":    []byte(`import { x } from './lazy.js';`),
			"js/lazy.js":   nil,
			"js/orphan.js": nil,
		},
	}
	var got []string
	for _, f := range (OrphanAssets{}).CheckSite(site) {
		got = append(got, f.File)
	}
	if diff := cmp.Diff([]string{"css/old.css", "js/orphan.js"}, got); diff != "" {
		t.Errorf("orphans mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistrySelect(t *testing.T) {
	reg, err := Default().Select([]string{"csp", "orphan-assets"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(reg.PageRules()) != 1 || len(reg.SiteRules()) != 1 {
		t.Errorf("selected %d page and %d site rules", len(reg.PageRules()), len(reg.SiteRules()))
	}
	if _, err := Default().Select([]string{"csp", "nope"}); err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected unknown rule error, got %v", err)
	}
	if reg, _ := Default().Select(nil); len(reg.Names()) != 10 {
		t.Errorf("empty selection should keep all rules, got %v", reg.Names())
	}
}
