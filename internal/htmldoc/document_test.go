package htmldoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loadFixture(t *testing.T, rel string) *Document {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "site", filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	doc, err := Parse(rel, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestResources(t *testing.T) {
	doc := loadFixture(t, "index.html")

	type ref struct {
		Kind ResourceKind
		URL  string
		Line int
	}
	var got []ref
	for _, r := range doc.Resources() {
		got = append(got, ref{r.Kind, r.URL, r.Line()})
	}
	want := []ref{
		{ResourceIcon, "/favicon.ico", 9},
		{ResourceStylesheet, "/css/styles.css?v=1.0", 11},
		{ResourceStylesheet, "/css/styles.css?v=2.0", 12},
		{ResourceScript, "https://pagead2.googlesyndication.com/pagead/js/adsbygoogle.js", 13},
		{ResourceImage, "/images/logo.png", 19},
		{ResourceScript, "/js/main.js", 23},
		{ResourceScript, "/js/main.js", 24},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resources mismatch (-want +got):\n%s", diff)
	}
}

func TestTagOffsetsCoverElement(t *testing.T) {
	doc := loadFixture(t, "index.html")
	scripts := doc.ResourcesOf(ResourceScript)
	last := scripts[len(scripts)-1].Tag
	if got := last.Source(doc.Src); got != `<script src="/js/main.js"></script>` {
		t.Errorf("script source = %q", got)
	}
}

func TestInlineScripts(t *testing.T) {
	doc := loadFixture(t, "index.html")
	inline := doc.InlineScripts()
	if len(inline) != 2 {
		t.Fatalf("expected 2 inline scripts, got %d", len(inline))
	}
	if inline[0].Hash != inline[1].Hash {
		t.Error("whitespace variants should hash equally")
	}
	if inline[0].Tag.Line != 25 || inline[1].Tag.Line != 26 {
		t.Errorf("inline lines = %d, %d", inline[0].Tag.Line, inline[1].Tag.Line)
	}
	if inline[0].Preview != "window.dataLayer = window.dataLayer || [];" {
		t.Errorf("preview = %q", inline[0].Preview)
	}
	if !strings.HasSuffix(inline[1].Tag.Source(doc.Src), "</script>") {
		t.Error("inline script range should include the end tag")
	}
}

func TestMetadata(t *testing.T) {
	doc := loadFixture(t, "index.html")

	if !doc.HasDoctype() {
		t.Error("expected doctype")
	}
	if !doc.Charset() {
		t.Error("expected charset")
	}
	if got := doc.Title(); got != "doha.kr" {
		t.Errorf("Title = %q", got)
	}
	if got := doc.Lang(); got != "ko" {
		t.Errorf("Lang = %q", got)
	}
	if desc, ok := doc.Meta("Description"); !ok || !strings.HasPrefix(desc, "Psychological") {
		t.Errorf("Meta(description) = %q, %v", desc, ok)
	}
	csp := doc.HTTPEquiv("content-security-policy")
	if len(csp) != 1 || csp[0].Line != 6 {
		t.Fatalf("HTTPEquiv(csp) = %+v", csp)
	}
	if !strings.Contains(csp[0].Attrs["content"], "script-src") {
		t.Errorf("csp content = %q", csp[0].Attrs["content"])
	}
	if head, ok := doc.Head(); !ok || head.Line != 3 {
		t.Errorf("Head = %+v, %v", head, ok)
	}
	if got := doc.Count("h1"); got != 1 {
		t.Errorf("Count(h1) = %d", got)
	}
}

func TestClasses(t *testing.T) {
	doc := loadFixture(t, "index.html")
	want := map[string]int{"navbar": 16, "hero": 17, "adsbygoogle": 20, "footer": 22}
	if diff := cmp.Diff(want, doc.Classes()); diff != "" {
		t.Errorf("Classes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"adsbygoogle", "footer", "hero", "navbar"}, doc.ClassNames()); diff != "" {
		t.Errorf("ClassNames mismatch (-want +got):\n%s", diff)
	}
}

func TestBodyTextSkipsScripts(t *testing.T) {
	doc := loadFixture(t, "index.html")
	text := doc.BodyText()
	if strings.Contains(text, "dataLayer") {
		t.Errorf("body text should not include script content: %q", text)
	}
	if text != "doha.kr Welcome doha.kr" {
		t.Errorf("BodyText = %q", text)
	}
}

func TestCommentedMarkupIgnored(t *testing.T) {
	src := []byte(`<html><head><!-- <script src="/old.js"></script> --><script src="/new.js"></script></head></html>`)
	doc, err := Parse("x.html", src)
	if err != nil {
		t.Fatal(err)
	}
	res := doc.Resources()
	if len(res) != 1 || res[0].URL != "/new.js" {
		t.Errorf("Resources = %+v", res)
	}
	if doc.HasDoctype() {
		t.Error("no doctype expected")
	}
}

func TestUnterminatedScript(t *testing.T) {
	src := []byte("<html><body><script>var a = 1;")
	doc, err := Parse("x.html", src)
	if err != nil {
		t.Fatal(err)
	}
	scripts := doc.TagsNamed("script")
	if len(scripts) != 1 || scripts[0].End != len(src) {
		t.Errorf("unterminated script = %+v", scripts)
	}
}

func TestLineOf(t *testing.T) {
	src := []byte("a\nb x\nc x\n")
	tests := []struct {
		needle string
		nth    int
		want   int
	}{
		{"x", 1, 2},
		{"x", 2, 3},
		{"x", 3, 0},
		{"a", 1, 1},
		{"", 1, 0},
	}
	for _, tt := range tests {
		if got := LineOf(src, tt.needle, tt.nth); got != tt.want {
			t.Errorf("LineOf(%q, %d) = %d, want %d", tt.needle, tt.nth, got, tt.want)
		}
	}
}
