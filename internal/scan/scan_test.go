package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/rules"
	"github.com/doha-kr/siteaudit/internal/walker"
)

func fixtureRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.Abs(filepath.Join("..", "..", "testdata", "site"))
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func walk(t *testing.T, root string) []walker.FileInfo {
	t.Helper()
	files, err := walker.Walk(walker.WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return files
}

func TestRunFixture(t *testing.T) {
	root := fixtureRoot(t)
	s := &Scanner{Concurrency: 2}

	r, err := s.Run(context.Background(), root, walk(t, root))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sum := r.Summary()
	want := map[report.Severity]int{
		report.SeverityError:   2,
		report.SeverityWarning: 7,
		report.SeverityInfo:    9,
	}
	if diff := cmp.Diff(want, sum.BySeverity); diff != "" {
		t.Errorf("severity counts mismatch (-want +got):\n%s", diff)
	}

	type key struct {
		Rule string
		File string
		Line int
	}
	got := make(map[key]bool)
	for _, f := range r.Findings {
		got[key{f.Rule, f.File, f.Line}] = true
	}
	for _, k := range []key{
		{"duplicate-resources", "index.html", 24},
		{"duplicate-resources", "index.html", 12},
		{"duplicate-resources", "index.html", 26},
		{"missing-references", "index.html", 19},
		{"csp", "about/index.html", 3},
		{"css-classes", "about/index.html", 11},
		{"css-classes", "css/styles.css", 19},
		{"orphan-assets", "js/orphan.js", 0},
	} {
		if !got[k] {
			t.Errorf("missing finding %+v", k)
		}
	}

	for i := 1; i < len(r.Findings); i++ {
		a, b := r.Findings[i-1], r.Findings[i]
		if a.File > b.File || (a.File == b.File && a.Line > b.Line) {
			t.Fatalf("findings not sorted at %d: %s:%d after %s:%d", i, b.File, b.Line, a.File, a.Line)
		}
	}
}

func TestRunSelectedRules(t *testing.T) {
	root := fixtureRoot(t)
	reg, err := rules.Default().Select([]string{"orphan-assets"})
	if err != nil {
		t.Fatal(err)
	}
	r, err := (&Scanner{Rules: reg}).Run(context.Background(), root, walk(t, root))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(r.Findings) != 1 || r.Findings[0].File != "js/orphan.js" {
		t.Errorf("findings = %+v", r.Findings)
	}
}

func TestRunUnreadableFileBecomesFinding(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<!DOCTYPE html><html></html>"), 0644)
	files := walk(t, dir)
	files = append(files, walker.FileInfo{
		Path:    filepath.Join(dir, "gone.html"),
		RelPath: "gone.html",
		Kind:    walker.KindHTML,
	})

	reg, _ := rules.Default().Select([]string{"csp"})
	r, err := (&Scanner{Rules: reg}).Run(context.Background(), dir, files)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	var ioFindings []report.Finding
	for _, f := range r.Findings {
		if f.Category == report.CategoryIO {
			ioFindings = append(ioFindings, f)
		}
	}
	if len(ioFindings) != 1 || ioFindings[0].File != "gone.html" || ioFindings[0].Severity != report.SeverityError {
		t.Errorf("io findings = %+v", ioFindings)
	}
}

func TestRunCancelled(t *testing.T) {
	root := fixtureRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Scanner{}).Run(ctx, root, walk(t, root)); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestFilterPages(t *testing.T) {
	files := []walker.FileInfo{
		{RelPath: "index.html", Kind: walker.KindHTML},
		{RelPath: "about/index.html", Kind: walker.KindHTML},
		{RelPath: "css/styles.css", Kind: walker.KindCSS},
	}
	got := FilterPages(files, []config.Page{{Path: "index.html"}})
	var paths []string
	for _, f := range got {
		paths = append(paths, f.RelPath)
	}
	if diff := cmp.Diff([]string{"index.html", "css/styles.css"}, paths); diff != "" {
		t.Errorf("FilterPages mismatch (-want +got):\n%s", diff)
	}
}
