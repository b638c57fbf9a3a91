package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
)

// testdataDir returns the absolute path to the testdata/site directory.
func testdataDir(t *testing.T) string {
	t.Helper()
	// Navigate from internal/walker to project root.
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("unable to determine test file location")
	}
	walkerDir := filepath.Dir(filename)
	root := filepath.Join(walkerDir, "..", "..", "testdata", "site")
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatalf("resolve testdata path: %v", err)
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		t.Fatalf("testdata dir does not exist: %s", abs)
	}
	return abs
}

func TestWalk_BasicTraversal(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	var got []string
	for _, f := range files {
		got = append(got, f.RelPath)
	}
	want := []string{
		"about/index.html",
		"css/base.css",
		"css/styles.css",
		"index.html",
		"js/main.js",
		"js/main.min.js",
		"js/orphan.js",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Walk() files:\n got  %v\n want %v", got, want)
	}
}

func TestWalk_AllKinds(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{RootDir: dir, AllKinds: true})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	found := false
	for _, f := range files {
		if f.RelPath == "favicon.ico" {
			found = true
			if f.Kind != KindOther {
				t.Errorf("favicon.ico kind = %q, want %q", f.Kind, KindOther)
			}
		}
		if strings.HasPrefix(f.RelPath, "reports/") {
			t.Errorf("reports directory should be skipped, got %s", f.RelPath)
		}
	}
	if !found {
		t.Error("AllKinds should keep favicon.ico")
	}
}

func TestWalk_SkipsBackups(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{RootDir: dir, AllKinds: true})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	for _, f := range files {
		if IsBackup(f.RelPath) {
			t.Errorf("backup file %s should have been skipped", f.RelPath)
		}
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.Path == "" {
			t.Error("FileInfo.Path is empty")
		}
		if f.RelPath == "" {
			t.Error("FileInfo.RelPath is empty")
		}
		if f.Size <= 0 {
			t.Errorf("FileInfo.Size for %s is %d, expected > 0", f.RelPath, f.Size)
		}
		if f.Kind == "" || f.Kind == KindOther {
			t.Errorf("FileInfo.Kind for %s is %q", f.RelPath, f.Kind)
		}
		if f.ContentHash == "" {
			t.Errorf("FileInfo.ContentHash for %s is empty", f.RelPath)
		}
		if len(f.ContentHash) != 64 {
			t.Errorf("FileInfo.ContentHash for %s has length %d, expected 64", f.RelPath, len(f.ContentHash))
		}
	}
}

func TestWalk_IncludeFilter(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{
		RootDir: dir,
		Include: []string{"*.html"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if !strings.HasSuffix(f.RelPath, ".html") {
			t.Errorf("include filter *.html let through: %s", f.RelPath)
		}
	}

	if len(files) != 2 {
		t.Errorf("expected 2 .html files, got %d", len(files))
	}
}

func TestWalk_ExcludeFilter(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{
		RootDir: dir,
		Exclude: []string{"js/**"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if strings.HasPrefix(f.RelPath, "js/") {
			t.Errorf("exclude filter js/** did not exclude: %s", f.RelPath)
		}
	}
}

func TestWalk_DoubleStarInclude(t *testing.T) {
	dir := testdataDir(t)

	files, err := Walk(WalkerConfig{
		RootDir: dir,
		Include: []string{"**/*.css"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	foundNested := false
	for _, f := range files {
		if strings.Contains(f.RelPath, "/") {
			foundNested = true
		}
		if !strings.HasSuffix(f.RelPath, ".css") {
			t.Errorf("include filter **/*.css let through: %s", f.RelPath)
		}
	}

	if !foundNested {
		t.Error("expected **/*.css to match nested stylesheets")
	}
}

// writeTree creates files under a fresh temp dir and returns its path.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func relPaths(t *testing.T, cfg WalkerConfig) []string {
	t.Helper()
	files, err := Walk(cfg)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	var out []string
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	sort.Strings(out)
	return out
}

func TestWalk_Skips(t *testing.T) {
	nul := string(make([]byte, 100))
	tests := []struct {
		name  string
		files map[string]string
		cfg   WalkerConfig
		want  []string
	}{
		{
			name:  "binary content",
			files: map[string]string{"index.html": "<p>hi</p>", "packed.js": nul, "image.bin": nul},
			cfg:   WalkerConfig{AllKinds: true},
			want:  []string{"index.html"},
		},
		{
			name:  "over size limit",
			files: map[string]string{"small.css": "a{}", "big.css": strings.Repeat("A", 200)},
			cfg:   WalkerConfig{MaxFileSize: 100},
			want:  []string{"small.css"},
		},
		{
			name: "default excluded dirs",
			files: map[string]string{
				"app.js":                   "const x = 1;",
				"node_modules/lib/x.js":    "x",
				".git/hooks/pre-commit.js": "x",
				"reports/out.html":         "x",
				"development/test.html":    "x",
			},
			want: []string{"app.js"},
		},
		{
			name: "gitignore basename patterns",
			files: map[string]string{
				".gitignore":      "*.log\ndraft.html\n",
				"app.js":          "var x = 1;",
				"debug.log":       "log data",
				"draft.html":      "<p>draft</p>",
				"blog/draft.html": "<p>draft</p>",
			},
			cfg:  WalkerConfig{AllKinds: true},
			want: []string{".gitignore", "app.js"},
		},
		{
			name: "gitignore directories and negation",
			files: map[string]string{
				".gitignore":       "build/\n/tmp.html\nvendor/*.js\n!vendor/keep.js\n",
				"index.html":       "<p>home</p>",
				"build/index.html": "<p>old</p>",
				"tmp.html":         "<p>tmp</p>",
				"pages/tmp.html":   "<p>nested</p>",
				"vendor/drop.js":   "x",
				"vendor/keep.js":   "x",
			},
			want: []string{"index.html", "pages/tmp.html", "vendor/keep.js"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.RootDir = writeTree(t, tc.files)
			got := relPaths(t, tc.cfg)
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("Walk() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWalk_ContentHashTracksContent(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.css": "a{}", "b.css": "a{}", "c.css": "b{}"})
	files, err := Walk(WalkerConfig{RootDir: dir})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("got %d files", len(files))
	}
	if files[0].ContentHash != files[1].ContentHash {
		t.Error("identical files should hash equal")
	}
	if files[0].ContentHash == files[2].ContentHash {
		t.Error("different files should hash differently")
	}
}

// --- Kind detection tests ---

func TestDetectKind(t *testing.T) {
	tests := []struct {
		filename string
		want     Kind
	}{
		{"index.html", KindHTML},
		{"legacy.HTM", KindHTML},
		{"css/styles.css", KindCSS},
		{"js/main.js", KindJS},
		{"js/module.mjs", KindJS},
		{"favicon.ico", KindOther},
		{"README", KindOther},
	}

	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			if got := DetectKind(tc.filename); got != tc.want {
				t.Errorf("DetectKind(%q) = %q, want %q", tc.filename, got, tc.want)
			}
		})
	}
}

func TestFilterKind(t *testing.T) {
	files := []FileInfo{
		{RelPath: "a.html", Kind: KindHTML},
		{RelPath: "a.css", Kind: KindCSS},
		{RelPath: "b.html", Kind: KindHTML},
	}
	got := FilterKind(files, KindHTML)
	if len(got) != 2 || got[0].RelPath != "a.html" || got[1].RelPath != "b.html" {
		t.Errorf("FilterKind(html) = %+v", got)
	}
}

func TestIsBackup(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"index.html.backup", true},
		{"index.html.backup_duplicates", true},
		{"index.html.backup-20250101", true},
		{"styles.css.bak", true},
		{"main.js.orig", true},
		{"index.html", false},
		{"backup-guide.html", false},
	}
	for _, tc := range tests {
		if got := IsBackup(tc.name); got != tc.want {
			t.Errorf("IsBackup(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMatchGlobs(t *testing.T) {
	tests := []struct {
		rel      string
		patterns []string
		want     bool
	}{
		{"about/index.html", []string{"*.html"}, true},
		{"about/index.html", []string{"about/**"}, true},
		{"css/site.css", []string{"js/**", "*.html"}, false},
		{"css/site.css", nil, false},
	}
	for _, tc := range tests {
		if got := MatchesExclude(tc.rel, tc.patterns); got != tc.want {
			t.Errorf("MatchesExclude(%q, %v) = %v, want %v", tc.rel, tc.patterns, got, tc.want)
		}
	}
	if !MatchesInclude("anything.js", nil) {
		t.Error("empty include list should select everything")
	}
	if !ExcludedDir("Node_Modules") || ExcludedDir("assets") {
		t.Error("ExcludedDir mismatch")
	}
}
