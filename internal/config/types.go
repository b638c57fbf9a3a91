package config

// ProviderType identifies an LLM provider used by the analyze command.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderNone       ProviderType = "none"
)

// PageType classifies a page for checklist inheritance and crawl reporting.
type PageType string

const (
	PageMain        PageType = "main"
	PageListing     PageType = "listing"
	PageService     PageType = "service"
	PageInteractive PageType = "interactive"
	PageTool        PageType = "tool"
	PageContent     PageType = "content"
	PageForm        PageType = "form"
)

// Config is the top-level siteaudit configuration, corresponding to .siteaudit.yml.
type Config struct {
	Root       string                   `yaml:"root" koanf:"root"`
	BaseURL    string                   `yaml:"base_url" koanf:"base_url"`
	Include    []string                 `yaml:"include" koanf:"include"`
	Exclude    []string                 `yaml:"exclude" koanf:"exclude"`
	ReportDir  string                   `yaml:"report_dir" koanf:"report_dir"`
	DBPath     string                   `yaml:"db_path" koanf:"db_path"`
	Rules      []string                 `yaml:"rules" koanf:"rules"`
	Pages      []Page                   `yaml:"pages" koanf:"pages"`
	Checklists map[string][]Requirement `yaml:"checklists" koanf:"checklists"`
	CSP        CSPConfig                `yaml:"csp" koanf:"csp"`
	CacheBust  CacheBustConfig          `yaml:"cache_bust" koanf:"cache_bust"`
	Backup     BackupConfig             `yaml:"backup" koanf:"backup"`
	Crawl      CrawlConfig              `yaml:"crawl" koanf:"crawl"`
	LLM        LLMConfig                `yaml:"llm" koanf:"llm"`
	Monitor    MonitorConfig            `yaml:"monitor" koanf:"monitor"`
	Quizzes    QuizConfig               `yaml:"quizzes" koanf:"quizzes"`
	Log        LogConfig                `yaml:"log" koanf:"log"`
}

// Page is one audited page of the site. Path is relative to the site root
// and doubles as the URL path for crawling.
type Page struct {
	Path      string   `yaml:"path" koanf:"path"`
	Type      PageType `yaml:"type" koanf:"type"`
	Priority  string   `yaml:"priority" koanf:"priority"`
	Checklist string   `yaml:"checklist" koanf:"checklist"`
	Quiz      string   `yaml:"quiz" koanf:"quiz"`
}

// Requirement is a single checklist item evaluated against a page's DOM.
// Max of zero means unbounded.
type Requirement struct {
	ID       string `yaml:"id" koanf:"id"`
	Label    string `yaml:"label" koanf:"label"`
	Selector string `yaml:"selector" koanf:"selector"`
	Min      int    `yaml:"min" koanf:"min"`
	Max      int    `yaml:"max" koanf:"max"`
	Contains string `yaml:"contains" koanf:"contains"`
}

// CSPConfig holds the standard Content-Security-Policy applied by the csp fixer.
type CSPConfig struct {
	Directives []string `yaml:"directives" koanf:"directives"`
}

// CacheBustConfig controls the cache-bust fixer.
type CacheBustConfig struct {
	Param   string `yaml:"param" koanf:"param"`
	Version string `yaml:"version" koanf:"version"`
}

// BackupConfig controls the backups written before files are rewritten.
type BackupConfig struct {
	Enabled bool   `yaml:"enabled" koanf:"enabled"`
	Suffix  string `yaml:"suffix" koanf:"suffix"`
}

// CrawlConfig controls live HTTP checks.
type CrawlConfig struct {
	Concurrency    int    `yaml:"concurrency" koanf:"concurrency"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	UserAgent      string `yaml:"user_agent" koanf:"user_agent"`
	CheckAssets    bool   `yaml:"check_assets" koanf:"check_assets"`
	LoadBudgetMS   int    `yaml:"load_budget_ms" koanf:"load_budget_ms"`
}

// LLMConfig selects the model used by the analyze command.
type LLMConfig struct {
	Provider  ProviderType `yaml:"provider" koanf:"provider"`
	Model     string       `yaml:"model" koanf:"model"`
	BaseURL   string       `yaml:"base_url,omitempty" koanf:"base_url"` // overrides the provider endpoint
	MaxTokens int          `yaml:"max_tokens" koanf:"max_tokens"`
	RPM       int          `yaml:"rpm" koanf:"rpm"`
}

// MonitorConfig holds the cron schedule used by the monitor command and
// where regressions are reported.
type MonitorConfig struct {
	Schedule   string `yaml:"schedule" koanf:"schedule"`
	WebhookURL string `yaml:"webhook_url,omitempty" koanf:"webhook_url"`
	NotifyOn   string `yaml:"notify_on,omitempty" koanf:"notify_on"` // minimum severity posted to the webhook
}

// QuizConfig locates quiz definitions and the generated JavaScript output.
type QuizConfig struct {
	Dir       string `yaml:"dir" koanf:"dir"`
	OutputDir string `yaml:"output_dir" koanf:"output_dir"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
