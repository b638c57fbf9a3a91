package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
)

// siteMarkers are files whose presence suggests the directory is a static site root.
var siteMarkers = []string{"index.html", "404.html", "sitemap.xml", "robots.txt", "CNAME"}

// detectSiteRoot reports whether dir looks like a static site root.
func detectSiteRoot(dir string) bool {
	for _, marker := range siteMarkers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// RunWizard runs an interactive configuration wizard and saves the result to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to siteaudit! Let's configure your site.")
	fmt.Println()

	cfg := DefaultConfig()

	if detectSiteRoot(".") {
		fmt.Println("The current directory looks like a static site root.")
		fmt.Println()
	}

	rootPrompt := promptui.Prompt{
		Label:   "Site root directory",
		Default: cfg.Root,
		Validate: func(s string) error {
			info, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", s)
			}
			return nil
		},
	}
	root, err := rootPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site root: %w", err)
	}
	cfg.Root = root

	urlPrompt := promptui.Prompt{
		Label:   "Production base URL",
		Default: cfg.BaseURL,
		Validate: func(s string) error {
			if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
				return fmt.Errorf("base URL must start with http:// or https://")
			}
			return nil
		},
	}
	baseURL, err := urlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	reportPrompt := promptui.Prompt{
		Label:   "Directory for JSON reports",
		Default: cfg.ReportDir,
	}
	reportDir, err := reportPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("report dir: %w", err)
	}
	cfg.ReportDir = reportDir

	excludePrompt := promptui.Prompt{
		Label:   "Extra exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if excludeStr != "" {
		cfg.Exclude = append(cfg.Exclude, splitAndTrim(excludeStr)...)
	}

	providerPrompt := promptui.Select{
		Label: "LLM provider for `siteaudit analyze`",
		Items: []string{"openai", "openrouter", "none"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)
	if cfg.LLM.Provider == ProviderOpenRouter {
		cfg.LLM.Model = "openai/gpt-4o-mini"
	}

	if envVar := APIKeyEnvVar(cfg.LLM.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running siteaudit analyze.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
