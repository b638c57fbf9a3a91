// Package crawler fetches live pages, runs the page rules against the
// served markup and response headers, and checks every referenced asset.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/progress"
	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/rules"
)

// ErrStatus marks a response with a non-success status code.
var ErrStatus = errors.New("unexpected status")

// Options configures a Crawler.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	CheckAssets bool
	LoadBudget  time.Duration // pages slower than this get a warning; 0 disables
}

// OptionsFromConfig maps the crawl section of the configuration.
func OptionsFromConfig(c config.CrawlConfig) Options {
	return Options{
		Concurrency: c.Concurrency,
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		UserAgent:   c.UserAgent,
		CheckAssets: c.CheckAssets,
		LoadBudget:  time.Duration(c.LoadBudgetMS) * time.Millisecond,
	}
}

// Crawler checks a deployed site over HTTP.
type Crawler struct {
	client   *resty.Client
	rules    *rules.Registry
	opts     Options
	log      *zap.Logger
	progress progress.Reporter

	flight singleflight.Group
	mu     sync.Mutex
	assets map[string]assetResult
}

type assetResult struct {
	status int
	err    error
}

// New returns a crawler. A nil registry runs every rule; rules that need
// the file tree skip themselves.
func New(opts Options, reg *rules.Registry, log *zap.Logger) *Crawler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if reg == nil {
		reg = rules.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("user-agent", opts.UserAgent)
	}
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &Crawler{
		client:   client,
		rules:    reg,
		opts:     opts,
		log:      log,
		progress: progress.Nop{},
		assets:   make(map[string]assetResult),
	}
}

// SetProgress installs a progress reporter.
func (c *Crawler) SetProgress(p progress.Reporter) {
	c.progress = p
}

// PageURL maps a site-relative page path to its public URL. Directory
// indexes are requested by their directory URL.
func PageURL(baseURL, path string) string {
	base := strings.TrimRight(baseURL, "/")
	path = strings.TrimPrefix(path, "/")
	if path == "index.html" {
		return base + "/"
	}
	if strings.HasSuffix(path, "/index.html") {
		path = strings.TrimSuffix(path, "index.html")
	}
	return base + "/" + path
}

// pageOutcome holds one page's results until they are merged in order.
type pageOutcome struct {
	result   report.PageResult
	findings []report.Finding
}

// Crawl fetches every page with bounded concurrency. A failing page never
// cancels the others; the returned error is non-nil only when ctx ends.
func (c *Crawler) Crawl(ctx context.Context, baseURL string, pages []config.Page) (*report.Report, error) {
	r := report.New(report.KindCrawl, baseURL)
	outcomes := make([]pageOutcome, len(pages))

	var done atomic.Int64
	c.progress.Start(len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, p := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = c.checkPage(gctx, PageURL(baseURL, p.Path), p)
			c.progress.Update(int(done.Add(1)), p.Path)
			return nil
		})
	}
	err := g.Wait()
	c.progress.Finish()
	if err != nil {
		return nil, fmt.Errorf("crawl cancelled: %w", err)
	}

	for _, o := range outcomes {
		r.Pages = append(r.Pages, o.result)
		r.Add(o.findings...)
	}
	r.Finish()
	return r, nil
}

func (c *Crawler) checkPage(ctx context.Context, url string, page config.Page) pageOutcome {
	out := pageOutcome{result: report.PageResult{URL: url, Path: page.Path}}
	log := c.log.With(zap.String("url", url))

	start := time.Now()
	resp, err := c.client.R().SetContext(ctx).Get(url)
	elapsed := time.Since(start)
	out.result.DurationMS = elapsed.Milliseconds()

	if err != nil {
		log.Warn("request failed", zap.Error(err))
		out.result.Error = err.Error()
		out.findings = append(out.findings, networkFinding(url, 0, fmt.Sprintf("request failed: %v", err)))
		return out
	}

	body := resp.Body()
	out.result.Status = resp.StatusCode()
	out.result.Bytes = int64(len(body))
	out.result.ContentType = resp.Header().Get("Content-Type")
	log.Debug("fetched page", zap.Int("status", resp.StatusCode()), zap.Duration("took", elapsed))

	if !out.result.OK() {
		err := fmt.Errorf("%w: GET %s returned %d", ErrStatus, url, resp.StatusCode())
		out.findings = append(out.findings, networkFinding(url, 0, err.Error()))
		return out
	}

	if c.opts.LoadBudget > 0 && elapsed > c.opts.LoadBudget {
		out.findings = append(out.findings, report.Finding{
			Rule:     "load-time",
			Category: report.CategoryPerformance,
			Severity: report.SeverityWarning,
			File:     url,
			Message:  fmt.Sprintf("page took %dms to load, budget is %dms", elapsed.Milliseconds(), c.opts.LoadBudget.Milliseconds()),
		})
	}

	if !isHTML(out.result.ContentType, body) {
		return out
	}
	doc, err := htmldoc.Parse(page.Path, body)
	if err != nil {
		out.findings = append(out.findings, networkFinding(url, 0, fmt.Sprintf("unparseable HTML: %v", err)))
		return out
	}

	out.findings = append(out.findings, c.rules.CheckPage(&rules.Page{
		Doc:     doc,
		URL:     url,
		Headers: resp.Header(),
	})...)

	if c.opts.CheckAssets {
		out.findings = append(out.findings, c.checkAssets(ctx, url, doc)...)
	}
	return out
}

// checkAssets requests every referenced asset once per crawl.
func (c *Crawler) checkAssets(ctx context.Context, pageURL string, doc *htmldoc.Document) []report.Finding {
	var out []report.Finding
	seen := make(map[string]bool)
	for _, res := range doc.Resources() {
		if strings.HasPrefix(strings.ToLower(res.URL), "data:") {
			continue
		}
		abs := htmldoc.AbsoluteURL(pageURL, res.URL)
		if seen[abs] {
			continue
		}
		seen[abs] = true

		ar := c.asset(ctx, abs)
		switch {
		case ar.err != nil:
			out = append(out, networkFinding(pageURL, res.Line(), fmt.Sprintf("failed network request for %s %s: %v", res.Kind, abs, ar.err)))
		case ar.status >= 400:
			out = append(out, networkFinding(pageURL, res.Line(), fmt.Sprintf("failed network request for %s %s: status %d", res.Kind, abs, ar.status)))
		}
	}
	return out
}

func (c *Crawler) asset(ctx context.Context, url string) assetResult {
	c.mu.Lock()
	if ar, ok := c.assets[url]; ok {
		c.mu.Unlock()
		return ar
	}
	c.mu.Unlock()

	v, _, _ := c.flight.Do(url, func() (interface{}, error) {
		ar := c.fetchAsset(ctx, url)
		c.mu.Lock()
		c.assets[url] = ar
		c.mu.Unlock()
		return ar, nil
	})
	return v.(assetResult)
}

// fetchAsset issues HEAD, falling back to GET for servers that reject it.
func (c *Crawler) fetchAsset(ctx context.Context, url string) assetResult {
	resp, err := c.client.R().SetContext(ctx).Head(url)
	if err != nil {
		return assetResult{err: err}
	}
	if resp.StatusCode() == http.StatusMethodNotAllowed || resp.StatusCode() == http.StatusNotImplemented {
		resp, err = c.client.R().SetContext(ctx).Get(url)
		if err != nil {
			return assetResult{err: err}
		}
	}
	return assetResult{status: resp.StatusCode()}
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		return strings.Contains(strings.ToLower(contentType), "html")
	}
	return strings.Contains(strings.ToLower(http.DetectContentType(body)), "html")
}

func networkFinding(url string, line int, msg string) report.Finding {
	return report.Finding{
		Rule:     "network",
		Category: report.CategoryNetwork,
		Severity: report.SeverityError,
		File:     url,
		Line:     line,
		Message:  msg,
	}
}
