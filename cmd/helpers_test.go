package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/fixer"
	"github.com/doha-kr/siteaudit/internal/report"
)

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"12h", 12 * time.Hour, false},
		{"0d", 0, false},
		{"-1d", 0, true},
		{"soon", 0, true},
		{"xd", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAge(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAge(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCheckFailOn(t *testing.T) {
	r := report.New(report.KindScan, ".")
	r.Add(report.Finding{Rule: "csp", Severity: report.SeverityWarning, File: "index.html", Message: "m"})

	if err := checkFailOn(r, ""); err != nil {
		t.Errorf("empty threshold: %v", err)
	}
	if err := checkFailOn(r, "error"); err != nil {
		t.Errorf("error threshold with only warnings: %v", err)
	}
	if err := checkFailOn(r, "warning"); err == nil {
		t.Error("expected failure at warning threshold")
	}
	if err := checkFailOn(report.New(report.KindScan, "."), "info"); err != nil {
		t.Errorf("no findings: %v", err)
	}
}

func TestBuildFixers(t *testing.T) {
	cfg := config.DefaultConfig()
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	fixers, err := buildFixers(cfg, []string{"dedupe", "cache-bust"}, now)
	if err != nil {
		t.Fatalf("buildFixers: %v", err)
	}
	if len(fixers) != 2 || fixers[0].Name() != "dedupe" {
		t.Fatalf("fixers = %v", fixers)
	}
	cb, ok := fixers[1].(fixer.CacheBust)
	if !ok || cb.Version != "20250701" || cb.Param != "v" {
		t.Errorf("cache-bust fixer = %+v", fixers[1])
	}

	if _, err := buildFixers(cfg, []string{"minify"}, now); err == nil {
		t.Error("expected error for unknown fixer")
	}
	if _, err := buildFixers(cfg, nil, now); err == nil {
		t.Error("expected error for empty selection")
	}
}

func TestSelectPages(t *testing.T) {
	cfg := config.DefaultConfig()

	all, err := selectPages(cfg, nil)
	if err != nil || len(all) != len(cfg.Pages) {
		t.Fatalf("selectPages(nil) = %d pages, %v", len(all), err)
	}

	got, err := selectPages(cfg, []string{"/tests/mbti/test.html", "new/page.html"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Quiz != "mbti" || got[1].Path != "new/page.html" {
		t.Errorf("pages = %+v", got)
	}

	cfg.Pages = nil
	if _, err := selectPages(cfg, nil); err == nil {
		t.Error("expected error with no pages configured")
	}
}

func TestOutputFlagsValidate(t *testing.T) {
	o := outputFlags{format: "table"}
	if err := o.validate(); err != nil {
		t.Errorf("table: %v", err)
	}
	o.format = "xml"
	if err := o.validate(); err == nil {
		t.Error("expected error for xml")
	}
	o = outputFlags{format: "json", failOn: "fatal"}
	if err := o.validate(); err == nil {
		t.Error("expected error for bad --fail-on")
	}
}

func TestResolveOutputsUsesSiteRoot(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "history.db")
	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.DBPath = abs

	resolveOutputs(cfg)

	if want := filepath.Join(root, "reports"); cfg.ReportDir != want {
		t.Errorf("ReportDir = %q, want %q", cfg.ReportDir, want)
	}
	if cfg.DBPath != abs {
		t.Errorf("absolute DBPath changed to %q", cfg.DBPath)
	}

	cfg.DBPath = ".siteaudit/history.db"
	resolveOutputs(cfg)
	if want := filepath.Join(root, ".siteaudit", "history.db"); cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
}
