// Package scan runs the rule engine over a site checkout.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/cssdoc"
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/progress"
	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/rules"
	"github.com/doha-kr/siteaudit/internal/walker"
)

// Scanner audits files on disk.
type Scanner struct {
	Rules       *rules.Registry
	Concurrency int
	Progress    progress.Reporter
	Logger      *zap.Logger
}

// parsed is the per-file result of the parse phase.
type parsed struct {
	doc    *htmldoc.Document
	sheet  *cssdoc.Stylesheet
	script []byte
	err    error
}

// Run parses files under root, applies page rules to every HTML file and
// site rules once. Files that cannot be read or parsed become io findings
// instead of aborting the scan. The returned error is non-nil only when
// ctx is cancelled.
func (s *Scanner) Run(ctx context.Context, root string, files []walker.FileInfo) (*report.Report, error) {
	reg := s.Rules
	if reg == nil {
		reg = rules.Default()
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prog := s.Progress
	if prog == nil {
		prog = progress.Nop{}
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = 4
	}

	r := report.New(report.KindScan, root)
	results := make([]parsed, len(files))
	exists := existsFunc(root, files)

	var (
		done atomic.Int64
		mu   sync.Mutex
	)
	pageFindings := make([][]report.Finding, len(files))

	prog.Start(len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = parseFile(f)
			if results[i].doc != nil {
				pageFindings[i] = reg.CheckPage(&rules.Page{Doc: results[i].doc, Exists: exists})
			}
			mu.Lock()
			prog.Update(int(done.Add(1)), f.RelPath)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		prog.Finish()
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}
	prog.Finish()

	site := &rules.Site{Scripts: make(map[string][]byte)}
	for i, res := range results {
		rel := files[i].RelPath
		switch {
		case res.err != nil:
			log.Warn("skipping unreadable file", zap.String("file", rel), zap.Error(res.err))
			r.Add(report.Finding{
				Rule:     "io",
				Category: report.CategoryIO,
				Severity: report.SeverityError,
				File:     rel,
				Message:  res.err.Error(),
			})
		case res.doc != nil:
			site.Pages = append(site.Pages, res.doc)
			r.Add(pageFindings[i]...)
		case res.sheet != nil:
			site.Stylesheets = append(site.Stylesheets, res.sheet)
		case res.script != nil:
			site.Scripts[rel] = res.script
		}
	}

	r.Add(reg.CheckSite(site)...)
	r.Finish()

	log.Debug("scan finished",
		zap.Int("files", len(files)),
		zap.Int("pages", len(site.Pages)),
		zap.Int("findings", len(r.Findings)),
		zap.Duration("took", r.Duration()))
	return r, nil
}

func parseFile(f walker.FileInfo) parsed {
	src, err := os.ReadFile(f.Path)
	if err != nil {
		return parsed{err: fmt.Errorf("reading file: %w", err)}
	}
	switch f.Kind {
	case walker.KindHTML:
		doc, err := htmldoc.Parse(f.RelPath, src)
		if err != nil {
			return parsed{err: err}
		}
		return parsed{doc: doc}
	case walker.KindCSS:
		return parsed{sheet: cssdoc.Parse(f.RelPath, src)}
	case walker.KindJS:
		if src == nil {
			src = []byte{}
		}
		return parsed{script: src}
	}
	return parsed{}
}

// existsFunc answers from the walked file list first and falls back to the
// file system for files the walker filtered out (images, fonts, backups of
// other kinds).
func existsFunc(root string, files []walker.FileInfo) func(string) bool {
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.RelPath] = true
	}
	return func(rel string) bool {
		if known[rel] {
			return true
		}
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		return err == nil
	}
}

// FilterPages keeps the HTML files listed in pages along with every
// stylesheet and script, which site rules still need.
func FilterPages(files []walker.FileInfo, pages []config.Page) []walker.FileInfo {
	wanted := make(map[string]bool, len(pages))
	for _, p := range pages {
		wanted[p.Path] = true
	}
	var out []walker.FileInfo
	for _, f := range files {
		if f.Kind != walker.KindHTML || wanted[f.RelPath] {
			out = append(out, f)
		}
	}
	return out
}
