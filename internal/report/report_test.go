package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sampleReport() *Report {
	r := New(KindScan, "testdata/site")
	r.Add(
		Finding{Rule: "csp", Category: CategoryCSP, Severity: SeverityWarning, File: "about/index.html", Message: "Content-Security-Policy meta tag is missing"},
		Finding{Rule: "duplicate-resources", Category: CategoryDuplicates, Severity: SeverityError, File: "index.html", Line: 24, Message: "script /js/main.js is included 2 times"},
		Finding{Rule: "orphan-assets", Category: CategoryAssets, Severity: SeverityInfo, File: "js/orphan.js", Message: "asset is not referenced by any page"},
		Finding{Rule: "duplicate-resources", Category: CategoryDuplicates, Severity: SeverityWarning, File: "index.html", Line: 12, Message: "stylesheet /css/styles.css is included with different versions"},
	)
	r.Changes = []Change{{File: "index.html", Fixer: "dedupe", Action: "removed", Line: 24, Before: `<script src="/js/main.js"></script>`}}
	r.Finish()
	return r
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"info", SeverityInfo, false},
		{"Warning", SeverityWarning, false},
		{" error ", SeverityError, false},
		{"fatal", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeverity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityError.AtLeast(SeverityWarning) {
		t.Error("error should be at least warning")
	}
	if SeverityInfo.AtLeast(SeverityWarning) {
		t.Error("info should not be at least warning")
	}
	if !SeverityWarning.AtLeast(SeverityWarning) {
		t.Error("warning should be at least warning")
	}
	if Severity("").AtLeast(SeverityInfo) {
		t.Error("empty severity should never qualify")
	}
}

func TestAddAssignsIDs(t *testing.T) {
	r := New(KindScan, "x")
	r.Add(Finding{Rule: "a"}, Finding{ID: "fixed", Rule: "b"})
	if r.Findings[0].ID == "" {
		t.Error("expected generated ID")
	}
	if r.Findings[1].ID != "fixed" {
		t.Errorf("existing ID overwritten: %q", r.Findings[1].ID)
	}
}

func TestFinishSortsFindings(t *testing.T) {
	r := sampleReport()
	var got []string
	for _, f := range r.Findings {
		got = append(got, location(f))
	}
	want := []string{"about/index.html", "index.html:12", "index.html:24", "js/orphan.js"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("finding order mismatch (-want +got):\n%s", diff)
	}
	if r.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestSummary(t *testing.T) {
	r := sampleReport()
	r.Pages = []PageResult{{URL: "https://doha.kr/", Status: 200}, {URL: "https://doha.kr/x", Status: 404}}
	r.Scores = []ScoreSummary{{Page: "a", Percent: 100}, {Page: "b", Percent: 50}}

	got := r.Summary()
	want := Summary{
		Total:         4,
		BySeverity:    map[Severity]int{SeverityError: 1, SeverityWarning: 2, SeverityInfo: 1},
		ByCategory:    map[Category]int{CategoryCSP: 1, CategoryDuplicates: 2, CategoryAssets: 1},
		ByRule:        map[string]int{"csp": 1, "duplicate-resources": 2, "orphan-assets": 1},
		FilesAffected: 3,
		FilesChanged:  1,
		PagesChecked:  2,
		PagesFailed:   1,
		Score:         75,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxSeverityAndFilter(t *testing.T) {
	r := sampleReport()
	if got := r.MaxSeverity(); got != SeverityError {
		t.Errorf("MaxSeverity = %q, want error", got)
	}
	if got := len(r.Filter(SeverityWarning)); got != 3 {
		t.Errorf("Filter(warning) returned %d findings, want 3", got)
	}
	if got := New(KindScan, "x").MaxSeverity(); got != "" {
		t.Errorf("empty report MaxSeverity = %q, want empty", got)
	}
}

func TestFingerprintIgnoresLine(t *testing.T) {
	a := Finding{Rule: "csp", File: "index.html", Line: 3, Message: "m"}
	b := Finding{Rule: "csp", File: "index.html", Line: 9, Message: "m", ID: "other"}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("fingerprint should not depend on line or ID")
	}
}

func TestWriteAndReadJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := sampleReport()

	path, err := WriteJSON(dir, r)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "scan-") || filepath.Ext(path) != ".json" {
		t.Errorf("unexpected report file name %s", path)
	}

	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if diff := cmp.Diff(r, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFileName(t *testing.T) {
	r := &Report{Kind: KindCrawl, StartedAt: time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)}
	if got := FileName(r); got != "crawl-20250701-093000.json" {
		t.Errorf("FileName = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, sampleReport(), 2)
	out := buf.String()
	for _, want := range []string{"scan report", "Findings", "duplicate-resources", "and 2 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	r := sampleReport()
	r.Notes = "1. Remove the duplicate script."
	md := RenderMarkdown(r)
	for _, want := range []string{"# Scan report", "| error | 1 |", "### index.html", "## Changes", "## Recommendations"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderHTMLSanitizesNotes(t *testing.T) {
	r := sampleReport()
	r.Notes = "Fix it <script>alert('x')</script> **now**"
	out, err := RenderHTML(r)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := string(out)
	if strings.Contains(html, "alert('x')") {
		t.Error("script from notes should be sanitized")
	}
	if !strings.Contains(html, "<strong>now</strong>") {
		t.Error("markdown emphasis should render")
	}
	if !strings.Contains(html, "<table>") {
		t.Error("GFM tables should render")
	}
}
