package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides. Nested keys use a double
// underscore: SITEAUDIT_CRAWL__CONCURRENCY -> crawl.concurrency.
const EnvPrefix = "SITEAUDIT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SITEAUDIT_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	resetOverridden(k, cfg)
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// resetOverridden clears the list fields the loaded sources set, so that a
// user's list replaces the default one instead of being decoded over it
// element by element.
func resetOverridden(k *koanf.Koanf, cfg *Config) {
	lists := map[string]func(){
		"include":        func() { cfg.Include = nil },
		"exclude":        func() { cfg.Exclude = nil },
		"rules":          func() { cfg.Rules = nil },
		"pages":          func() { cfg.Pages = nil },
		"csp.directives": func() { cfg.CSP.Directives = nil },
	}
	for key, reset := range lists {
		if k.Exists(key) {
			reset()
		}
	}
	for _, name := range k.MapKeys("checklists") {
		delete(cfg.Checklists, name)
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI:     true,
	ProviderOpenRouter: true,
	ProviderNone:       true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if c.ReportDir == "" {
		return fmt.Errorf("report_dir is required")
	}
	if c.LLM.Provider != "" && !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of openai, openrouter, none", c.LLM.Provider)
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be positive")
	}
	if c.Crawl.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.timeout_seconds must be positive")
	}
	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q", c.Log.Level)
	}
	if c.Monitor.Schedule != "" {
		if _, err := cronParser.Parse(c.Monitor.Schedule); err != nil {
			return fmt.Errorf("invalid monitor.schedule %q: %w", c.Monitor.Schedule, err)
		}
	}
	if c.Monitor.WebhookURL != "" && !strings.HasPrefix(c.Monitor.WebhookURL, "http://") && !strings.HasPrefix(c.Monitor.WebhookURL, "https://") {
		return fmt.Errorf("invalid monitor.webhook_url %q: must be an http(s) URL", c.Monitor.WebhookURL)
	}
	switch c.Monitor.NotifyOn {
	case "", "info", "warning", "error":
	default:
		return fmt.Errorf("invalid monitor.notify_on %q: must be one of info, warning, error", c.Monitor.NotifyOn)
	}
	if c.Backup.Enabled && c.Backup.Suffix == "" {
		return fmt.Errorf("backup.suffix is required when backups are enabled")
	}

	seen := make(map[string]bool, len(c.Pages))
	for i, p := range c.Pages {
		if p.Path == "" {
			return fmt.Errorf("pages[%d]: path is required", i)
		}
		if seen[p.Path] {
			return fmt.Errorf("pages[%d]: duplicate path %q", i, p.Path)
		}
		seen[p.Path] = true
		if p.Checklist != "" {
			if _, ok := c.Checklists[p.Checklist]; !ok {
				return fmt.Errorf("pages[%d]: unknown checklist %q", i, p.Checklist)
			}
		}
	}

	for name, reqs := range c.Checklists {
		for i, r := range reqs {
			if r.Selector == "" {
				return fmt.Errorf("checklists.%s[%d]: selector is required", name, i)
			}
			if r.Max > 0 && r.Max < r.Min {
				return fmt.Errorf("checklists.%s[%d]: max %d is below min %d", name, i, r.Max, r.Min)
			}
		}
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	default:
		return ""
	}
}

// PageByPath returns the configured page with the given root-relative path.
func (c *Config) PageByPath(path string) (Page, bool) {
	for _, p := range c.Pages {
		if p.Path == path {
			return p, true
		}
	}
	return Page{}, false
}
