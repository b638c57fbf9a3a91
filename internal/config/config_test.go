package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Root != "." {
		t.Errorf("expected default root %q, got %q", ".", cfg.Root)
	}
	if cfg.ReportDir != "reports" {
		t.Errorf("expected default report_dir %q, got %q", "reports", cfg.ReportDir)
	}
	if cfg.Crawl.Concurrency != 4 {
		t.Errorf("expected default crawl.concurrency 4, got %d", cfg.Crawl.Concurrency)
	}
	if !cfg.Backup.Enabled {
		t.Error("expected backups to be enabled by default")
	}
	if len(cfg.Pages) != len(DefaultPages) {
		t.Errorf("expected %d default pages, got %d", len(DefaultPages), len(cfg.Pages))
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.siteaudit.yml")

	original := DefaultConfig()
	original.Root = "site"
	original.BaseURL = "https://example.test"
	original.Exclude = []string{"drafts/**"}
	original.Crawl.Concurrency = 9
	original.Pages = []Page{{Path: "index.html", Type: PageMain}}

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Root != original.Root {
		t.Errorf("root: got %q, want %q", loaded.Root, original.Root)
	}
	if loaded.BaseURL != original.BaseURL {
		t.Errorf("base_url: got %q, want %q", loaded.BaseURL, original.BaseURL)
	}
	if loaded.Crawl.Concurrency != 9 {
		t.Errorf("crawl.concurrency: got %d, want 9", loaded.Crawl.Concurrency)
	}
	if len(loaded.Exclude) != 1 || loaded.Exclude[0] != "drafts/**" {
		t.Errorf("exclude: got %v", loaded.Exclude)
	}
	if len(loaded.Pages) != 1 || loaded.Pages[0].Type != PageMain {
		t.Errorf("pages: got %+v", loaded.Pages)
	}
}

func TestLoadUserListsReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yml")
	yml := `pages:
  - path: a.html
  - path: b.html
  - path: c.html
  - path: d.html
exclude:
  - vendor/**
checklists:
  page:
    - id: title
      selector: title
      min: 1
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}
	firstDefault := DefaultPages[0]
	firstExclude := DefaultExcludes[0]

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Pages) != 4 {
		t.Fatalf("pages: got %d, want 4", len(cfg.Pages))
	}
	for _, p := range cfg.Pages {
		if p.Type != "" || p.Priority != "" || p.Quiz != "" {
			t.Errorf("page %s inherited default fields: %+v", p.Path, p)
		}
	}
	if len(cfg.Exclude) != 1 || cfg.Exclude[0] != "vendor/**" {
		t.Errorf("exclude: got %v", cfg.Exclude)
	}
	if reqs := cfg.Checklists["page"]; len(reqs) != 1 || reqs[0].ID != "title" || reqs[0].Max != 0 || reqs[0].Label != "" {
		t.Errorf("checklists.page: got %+v", reqs)
	}
	if _, ok := cfg.Checklists["form"]; !ok {
		t.Error("checklists not named in the file should keep their defaults")
	}

	if DefaultPages[0] != firstDefault {
		t.Errorf("DefaultPages[0] changed to %+v", DefaultPages[0])
	}
	if DefaultExcludes[0] != firstExclude {
		t.Errorf("DefaultExcludes[0] changed to %q", DefaultExcludes[0])
	}
	if DefaultChecklists["page"][0].ID != "navbar" {
		t.Errorf("DefaultChecklists changed: %+v", DefaultChecklists["page"][0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.BaseURL != "https://doha.kr" {
		t.Errorf("expected default base url, got %q", cfg.BaseURL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yml")

	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("SITEAUDIT_BASE_URL", "https://staging.doha.kr")
	t.Setenv("SITEAUDIT_CRAWL__CONCURRENCY", "12")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.BaseURL != "https://staging.doha.kr" {
		t.Errorf("env override failed: got %q", loaded.BaseURL)
	}
	if loaded.Crawl.Concurrency != 12 {
		t.Errorf("nested env override failed: got %d", loaded.Crawl.Concurrency)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(path, []byte("root: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestValidateValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Root = "" }},
		{"empty report dir", func(c *Config) { c.ReportDir = "" }},
		{"invalid provider", func(c *Config) { c.LLM.Provider = "anthropic" }},
		{"zero concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }},
		{"negative timeout", func(c *Config) { c.Crawl.TimeoutSeconds = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad schedule", func(c *Config) { c.Monitor.Schedule = "every tuesday" }},
		{"bad webhook", func(c *Config) { c.Monitor.WebhookURL = "hooks.slack.com/x" }},
		{"bad notify_on", func(c *Config) { c.Monitor.NotifyOn = "critical" }},
		{"empty backup suffix", func(c *Config) { c.Backup.Suffix = "" }},
		{"page without path", func(c *Config) { c.Pages = []Page{{Type: PageMain}} }},
		{"duplicate page", func(c *Config) {
			c.Pages = []Page{{Path: "index.html"}, {Path: "index.html"}}
		}},
		{"unknown checklist", func(c *Config) {
			c.Pages = []Page{{Path: "index.html", Checklist: "missing"}}
		}},
		{"requirement without selector", func(c *Config) {
			c.Checklists = map[string][]Requirement{"page": {{ID: "x"}}}
		}},
		{"max below min", func(c *Config) {
			c.Checklists = map[string][]Requirement{"page": {{ID: "x", Selector: "h1", Min: 2, Max: 1}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestChecklistFor(t *testing.T) {
	cfg := DefaultConfig()

	name, reqs := cfg.ChecklistFor(Page{Path: "contact/index.html", Type: PageForm})
	if name != "form" || len(reqs) == 0 {
		t.Errorf("form page: got checklist %q with %d requirements", name, len(reqs))
	}

	name, _ = cfg.ChecklistFor(Page{Path: "about/index.html", Type: PageContent})
	if name != "page" {
		t.Errorf("content page should fall back to %q, got %q", "page", name)
	}

	name, _ = cfg.ChecklistFor(Page{Path: "x.html", Type: PageContent, Checklist: "tool"})
	if name != "tool" {
		t.Errorf("explicit checklist should win, got %q", name)
	}
}

func TestAPIKeyEnvVar(t *testing.T) {
	tests := []struct {
		provider ProviderType
		want     string
	}{
		{ProviderOpenAI, "OPENAI_API_KEY"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY"},
		{ProviderNone, ""},
	}
	for _, tt := range tests {
		if got := APIKeyEnvVar(tt.provider); got != tt.want {
			t.Errorf("APIKeyEnvVar(%q) = %q, want %q", tt.provider, got, tt.want)
		}
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"drafts/**", []string{"drafts/**"}},
		{"", nil},
		{"  ,  , ", nil},
	}
	for _, tt := range tests {
		got := splitAndTrim(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitAndTrim(%q) len = %d, want %d", tt.input, len(got), len(tt.want))
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("splitAndTrim(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}

func TestDetectSiteRoot(t *testing.T) {
	dir := t.TempDir()
	if detectSiteRoot(dir) {
		t.Error("empty dir should not look like a site root")
	}
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644)
	if !detectSiteRoot(dir) {
		t.Error("dir with index.html should look like a site root")
	}
}
