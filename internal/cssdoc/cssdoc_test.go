package cssdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFixture(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "testdata", "site", "css", "styles.css"))
	if err != nil {
		t.Fatal(err)
	}
	sheet := Parse("css/styles.css", src)

	wantClasses := map[string]int{"navbar": 3, "hero": 7, "footer": 7, "content": 11, "unused-rule": 15}
	if diff := cmp.Diff(wantClasses, sheet.Classes()); diff != "" {
		t.Errorf("Classes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"base.css"}, sheet.Imports); diff != "" {
		t.Errorf("Imports mismatch (-want +got):\n%s", diff)
	}
	if sheet.Rules != 5 {
		t.Errorf("Rules = %d, want 5", sheet.Rules)
	}

	var selectors []string
	for _, s := range sheet.Selectors {
		selectors = append(selectors, s.Text)
	}
	wantSelectors := []string{".navbar", ".hero", ".footer", ".content > p", ".unused-rule:hover", ".hero"}
	if diff := cmp.Diff(wantSelectors, selectors); diff != "" {
		t.Errorf("Selectors mismatch (-want +got):\n%s", diff)
	}

	wantDup := []Duplicate{{Selector: ".hero", Lines: []int{7, 19}}}
	if diff := cmp.Diff(wantDup, sheet.DuplicateSelectors()); diff != "" {
		t.Errorf("DuplicateSelectors mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMediaContext(t *testing.T) {
	src := []byte(`.card { color: red; }
@media (max-width: 600px) {
  .card { color: blue; }
  .card { margin: 0; }
}
`)
	sheet := Parse("a.css", src)

	dups := sheet.DuplicateSelectors()
	if len(dups) != 1 {
		t.Fatalf("expected 1 duplicate, got %+v", dups)
	}
	if dups[0].Context != "@media (max-width: 600px)" {
		t.Errorf("context = %q", dups[0].Context)
	}
	if diff := cmp.Diff([]int{3, 4}, dups[0].Lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSkipsKeyframesAndFontFace(t *testing.T) {
	src := []byte(`@font-face { font-family: "X"; src: url(x.woff2); }
@keyframes fade { from { opacity: 0; } to { opacity: 1; } }
.after:not(.hidden) { display: block; }
`)
	sheet := Parse("a.css", src)

	if diff := cmp.Diff([]string{"after", "hidden"}, sheet.ClassNames()); diff != "" {
		t.Errorf("ClassNames mismatch (-want +got):\n%s", diff)
	}
	if sheet.Rules != 1 {
		t.Errorf("Rules = %d, want 1", sheet.Rules)
	}
}

func TestParseImportString(t *testing.T) {
	sheet := Parse("a.css", []byte(`@charset "utf-8"; @import 'reset.css'; body { margin: 0 }`))
	if diff := cmp.Diff([]string{"reset.css"}, sheet.Imports); diff != "" {
		t.Errorf("Imports mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIgnoresNumbersInDeclarations(t *testing.T) {
	sheet := Parse("a.css", []byte(`.a { margin: .5em; line-height: 1.5; }`))
	if diff := cmp.Diff([]string{"a"}, sheet.ClassNames()); diff != "" {
		t.Errorf("ClassNames mismatch (-want +got):\n%s", diff)
	}
}
