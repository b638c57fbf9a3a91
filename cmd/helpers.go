package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/db"
	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/logging"
	"github.com/doha-kr/siteaudit/internal/progress"
	"github.com/doha-kr/siteaudit/internal/quiz"
	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/rules"
	"github.com/doha-kr/siteaudit/internal/scan"
	"github.com/doha-kr/siteaudit/internal/walker"
)

// loadConfig loads and validates the config, applies --root and sets up
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `siteaudit init` to create a config file", err)
	}
	if rootFlag != "" {
		cfg.Root = rootFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	resolveOutputs(cfg)

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if err := logging.Initialize(logging.Options{Level: level, Format: cfg.Log.Format}); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// sitePath resolves a config path relative to the site root.
func sitePath(cfg *config.Config, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cfg.Root, p)
}

// resolveOutputs anchors the report directory and history database at the
// site root, the same base as the quiz directories.
func resolveOutputs(cfg *config.Config) {
	cfg.ReportDir = sitePath(cfg, cfg.ReportDir)
	cfg.DBPath = sitePath(cfg, cfg.DBPath)
}

func walkSite(cfg *config.Config) ([]walker.FileInfo, error) {
	files, err := walker.Walk(walker.WalkerConfig{
		RootDir: cfg.Root,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("walking site: %w", err)
	}
	logging.Get().Debug("walked site", zap.String("root", cfg.Root), zap.Int("files", len(files)))
	return files, nil
}

// selectRules applies --rules, falling back to the config's rule list.
func selectRules(cfg *config.Config, names []string) (*rules.Registry, error) {
	if len(names) == 0 {
		names = cfg.Rules
	}
	return rules.Default().Select(names)
}

// scanSite walks and scans the site. A nil prog disables progress output.
func scanSite(ctx context.Context, cfg *config.Config, ruleNames []string, pagesOnly bool, prog progress.Reporter) (*report.Report, error) {
	reg, err := selectRules(cfg, ruleNames)
	if err != nil {
		return nil, err
	}
	files, err := walkSite(cfg)
	if err != nil {
		return nil, err
	}
	if pagesOnly {
		files = scan.FilterPages(files, cfg.Pages)
	}
	s := &scan.Scanner{
		Rules:       reg,
		Concurrency: cfg.Crawl.Concurrency,
		Progress:    prog,
		Logger:      logging.Named("scan"),
	}
	return s.Run(ctx, cfg.Root, files)
}

func openStore(cfg *config.Config) (*history.Store, func(), error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening history %s: %w", cfg.DBPath, err)
	}
	return history.NewStore(database), func() { database.Close() }, nil
}

// loadQuizzes returns the valid quiz definitions by id. A missing quiz
// directory yields an empty map.
func loadQuizzes(cfg *config.Config) (map[string]*quiz.Definition, error) {
	out := make(map[string]*quiz.Definition)
	if cfg.Quizzes.Dir == "" {
		return out, nil
	}
	dir := sitePath(cfg, cfg.Quizzes.Dir)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	defs, err := quiz.LoadDir(dir)
	for _, d := range defs {
		out[d.ID] = d
	}
	return out, err
}

// outputFlags are shared by the commands that produce a report.
type outputFlags struct {
	format string
	limit  int
	noSave bool
	failOn string
}

func (o *outputFlags) register(cmd *cobra.Command, failOn bool) {
	cmd.Flags().StringVar(&o.format, "format", "table", "output format: table, json or markdown")
	cmd.Flags().IntVar(&o.limit, "limit", 30, "findings shown in table output (0 = all)")
	cmd.Flags().BoolVar(&o.noSave, "no-save", false, "do not write the JSON report or record the run in history")
	if failOn {
		cmd.Flags().StringVar(&o.failOn, "fail-on", "", "exit non-zero when a finding at or above this severity exists (info, warning, error)")
	}
}

func (o *outputFlags) validate() error {
	switch o.format {
	case "table", "json", "markdown":
	default:
		return fmt.Errorf("unknown format %q: must be table, json or markdown", o.format)
	}
	if o.failOn != "" {
		if _, err := report.ParseSeverity(o.failOn); err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
	}
	return nil
}

// emit records r (JSON file and history) unless --no-save, prints it, and
// applies --fail-on.
func (o *outputFlags) emit(ctx context.Context, cfg *config.Config, r *report.Report) error {
	if !o.noSave {
		if err := record(ctx, cfg, r); err != nil {
			return err
		}
	}

	switch o.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
	case "markdown":
		fmt.Print(report.RenderMarkdown(r))
	default:
		report.RenderTable(os.Stdout, r, o.limit)
	}

	return checkFailOn(r, o.failOn)
}

// record writes r to the report directory and the history database.
func record(ctx context.Context, cfg *config.Config, r *report.Report) error {
	path, err := report.WriteJSON(cfg.ReportDir, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logging.Get().Warn("run not recorded in history", zap.Error(err))
		return nil
	}
	defer closeStore()
	if err := store.Save(ctx, r); err != nil {
		logging.Get().Warn("run not recorded in history", zap.Error(err))
	}
	return nil
}

func checkFailOn(r *report.Report, threshold string) error {
	if threshold == "" {
		return nil
	}
	sev, err := report.ParseSeverity(threshold)
	if err != nil {
		return err
	}
	if top := r.MaxSeverity(); top.AtLeast(sev) {
		return fmt.Errorf("%d finding(s) at or above %s", len(r.Filter(sev)), sev)
	}
	return nil
}
