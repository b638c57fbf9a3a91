package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/crawler"
	"github.com/doha-kr/siteaudit/internal/logging"
	"github.com/doha-kr/siteaudit/internal/progress"
	"github.com/doha-kr/siteaudit/internal/report"
)

var (
	crawlOut      outputFlags
	crawlBaseURL  string
	crawlPages    []string
	crawlNoAssets bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Check the deployed site over HTTP",
	Long: `Fetches every configured page from the base URL, records status, timing and
size, runs the page rules and security header checks on the live HTML, and
requests every referenced script, stylesheet and image once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := crawlOut.validate(); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if crawlBaseURL != "" {
			cfg.BaseURL = crawlBaseURL
		}
		if crawlNoAssets {
			cfg.Crawl.CheckAssets = false
		}
		pages, err := selectPages(cfg, crawlPages)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()
		r, err := crawlSite(ctx, cfg, pages, progress.NewReporter("Crawling"))
		if err != nil {
			return err
		}
		return crawlOut.emit(ctx, cfg, r)
	},
}

func init() {
	crawlOut.register(crawlCmd, true)
	crawlCmd.Flags().StringVar(&crawlBaseURL, "base-url", "", "site URL to crawl (overrides config)")
	crawlCmd.Flags().StringSliceVar(&crawlPages, "pages", nil, "page paths to crawl (default: all configured pages)")
	crawlCmd.Flags().BoolVar(&crawlNoAssets, "no-assets", false, "skip requests for referenced scripts, stylesheets and images")
	rootCmd.AddCommand(crawlCmd)
}

// selectPages returns the configured pages named in paths, or all of them.
// Paths not in the config are crawled with default settings.
func selectPages(cfg *config.Config, paths []string) ([]config.Page, error) {
	if len(paths) == 0 {
		if len(cfg.Pages) == 0 {
			return nil, fmt.Errorf("no pages configured")
		}
		return cfg.Pages, nil
	}
	out := make([]config.Page, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimPrefix(strings.TrimSpace(p), "/")
		if page, ok := cfg.PageByPath(p); ok {
			out = append(out, page)
			continue
		}
		out = append(out, config.Page{Path: p})
	}
	return out, nil
}

func crawlSite(ctx context.Context, cfg *config.Config, pages []config.Page, prog progress.Reporter) (*report.Report, error) {
	reg, err := selectRules(cfg, nil)
	if err != nil {
		return nil, err
	}
	c := crawler.New(crawler.OptionsFromConfig(cfg.Crawl), reg, logging.Named("crawl"))
	if prog != nil {
		c.SetProgress(prog)
	}
	return c.Crawl(ctx, cfg.BaseURL, pages)
}
