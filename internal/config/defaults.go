package config

import "slices"

// DefaultExcludes are glob patterns excluded from scanning by default.
var DefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"dist/**",
	"reports/**",
	"development/**",
	"*.min.js",
	"*.min.css",
	"*.backup*",
}

// DefaultCSPDirectives is the standard policy applied by the csp fixer.
var DefaultCSPDirectives = []string{
	"upgrade-insecure-requests",
	"default-src 'self' https:",
	"script-src 'self' 'unsafe-inline' https://pagead2.googlesyndication.com https://www.googletagmanager.com https://developers.kakao.com https://t1.kakaocdn.net https://cdn.jsdelivr.net",
	"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com",
	"font-src 'self' https://fonts.gstatic.com",
	"img-src 'self' data: https:",
	"connect-src 'self' https:",
	"frame-src 'self' https://www.google.com https://googleads.g.doubleclick.net https://tpc.googlesyndication.com",
}

// DefaultPages lists the pages of doha.kr audited when the config file names none.
var DefaultPages = []Page{
	{Path: "index.html", Type: PageMain, Priority: "critical"},
	{Path: "tests/index.html", Type: PageListing, Priority: "high"},
	{Path: "tests/teto-egen/index.html", Type: PageService, Priority: "high"},
	{Path: "tests/teto-egen/test.html", Type: PageInteractive, Priority: "critical", Quiz: "teto-egen"},
	{Path: "tests/mbti/index.html", Type: PageService, Priority: "high"},
	{Path: "tests/mbti/test.html", Type: PageInteractive, Priority: "critical", Quiz: "mbti"},
	{Path: "tests/love-dna/index.html", Type: PageService, Priority: "high"},
	{Path: "tests/love-dna/test.html", Type: PageInteractive, Priority: "critical", Quiz: "love-dna"},
	{Path: "tools/index.html", Type: PageListing, Priority: "high"},
	{Path: "tools/text-counter.html", Type: PageTool, Priority: "high"},
	{Path: "tools/bmi-calculator.html", Type: PageTool, Priority: "high"},
	{Path: "tools/salary-calculator.html", Type: PageTool, Priority: "high"},
	{Path: "fortune/index.html", Type: PageListing, Priority: "high"},
	{Path: "fortune/daily/index.html", Type: PageService, Priority: "high"},
	{Path: "fortune/saju/index.html", Type: PageService, Priority: "high"},
	{Path: "fortune/tarot/index.html", Type: PageInteractive, Priority: "critical"},
	{Path: "fortune/zodiac/index.html", Type: PageService, Priority: "high"},
	{Path: "fortune/zodiac-animal/index.html", Type: PageService, Priority: "high"},
	{Path: "faq/index.html", Type: PageContent, Priority: "medium"},
	{Path: "about/index.html", Type: PageContent, Priority: "medium"},
	{Path: "contact/index.html", Type: PageForm, Priority: "high"},
	{Path: "privacy/index.html", Type: PageContent, Priority: "medium"},
	{Path: "terms/index.html", Type: PageContent, Priority: "medium"},
	{Path: "404.html", Type: PageContent, Priority: "medium"},
}

// DefaultChecklists maps checklist names to requirements. Pages without an
// explicit checklist use the one named after their type, falling back to "page".
var DefaultChecklists = map[string][]Requirement{
	"page": {
		{ID: "navbar", Label: "Navigation placeholder present", Selector: "#navbar-placeholder, nav", Min: 1},
		{ID: "footer", Label: "Footer placeholder present", Selector: "#footer-placeholder, footer", Min: 1},
		{ID: "h1", Label: "Single h1 heading", Selector: "h1", Min: 1, Max: 1},
		{ID: "main-js", Label: "main.js loaded", Selector: `script[src*="main.js"]`, Min: 1, Max: 1},
		{ID: "styles", Label: "Site stylesheet loaded", Selector: `link[rel="stylesheet"][href*="styles"]`, Min: 1},
	},
	"interactive": {
		{ID: "navbar", Label: "Navigation placeholder present", Selector: "#navbar-placeholder, nav", Min: 1},
		{ID: "footer", Label: "Footer placeholder present", Selector: "#footer-placeholder, footer", Min: 1},
		{ID: "buttons", Label: "Interactive buttons present", Selector: "button", Min: 1},
		{ID: "result", Label: "Result container present", Selector: "#result, .result, .result-container", Min: 1},
	},
	"form": {
		{ID: "form", Label: "Form present", Selector: "form", Min: 1},
		{ID: "labels", Label: "Inputs are labelled", Selector: "label", Min: 1},
		{ID: "required", Label: "Required fields marked", Selector: "[required]", Min: 1},
	},
	"tool": {
		{ID: "inputs", Label: "Tool inputs present", Selector: "input, textarea, select", Min: 1},
		{ID: "buttons", Label: "Action button present", Selector: "button", Min: 1},
	},
}

// DefaultConfig returns a Config with sensible defaults. Slices and maps
// are copies, so decoding into the result never touches the package
// defaults.
func DefaultConfig() *Config {
	return &Config{
		Root:       ".",
		BaseURL:    "https://doha.kr",
		Include:    []string{"**"},
		Exclude:    slices.Clone(DefaultExcludes),
		ReportDir:  "reports",
		DBPath:     ".siteaudit/history.db",
		Pages:      slices.Clone(DefaultPages),
		Checklists: cloneChecklists(DefaultChecklists),
		CSP:        CSPConfig{Directives: slices.Clone(DefaultCSPDirectives)},
		CacheBust:  CacheBustConfig{Param: "v"},
		Backup:     BackupConfig{Enabled: true, Suffix: ".backup"},
		Crawl: CrawlConfig{
			Concurrency:    4,
			TimeoutSeconds: 15,
			UserAgent:      "siteaudit/1.0 (+https://doha.kr)",
			CheckAssets:    true,
			LoadBudgetMS:   3000,
		},
		LLM: LLMConfig{
			Provider:  ProviderOpenAI,
			Model:     "gpt-4o-mini",
			MaxTokens: 2048,
			RPM:       30,
		},
		Monitor: MonitorConfig{Schedule: "0 */6 * * *"},
		Quizzes: QuizConfig{Dir: "content/quizzes", OutputDir: "js/generated"},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

func cloneChecklists(src map[string][]Requirement) map[string][]Requirement {
	out := make(map[string][]Requirement, len(src))
	for name, reqs := range src {
		out[name] = slices.Clone(reqs)
	}
	return out
}

// ChecklistFor returns the checklist name and requirements that apply to page.
func (c *Config) ChecklistFor(page Page) (string, []Requirement) {
	for _, name := range []string{page.Checklist, string(page.Type), "page"} {
		if name == "" {
			continue
		}
		if reqs, ok := c.Checklists[name]; ok {
			return name, reqs
		}
	}
	return "", nil
}
