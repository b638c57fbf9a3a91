package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/fixer"
	"github.com/doha-kr/siteaudit/internal/logging"
	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/scan"
)

var (
	fixOut           outputFlags
	fixFixers        []string
	fixDryRun        bool
	fixInsertMissing bool
	fixVersion       string
	fixNoBackup      bool
	fixPagesOnly     bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Rewrite site files to remove duplicates and standardise CSP and cache busting",
	Long: `Runs the selected fixers over every HTML file. All edits are computed first;
then each file is backed up and rewritten. If any write fails, the files
already written in this run are restored. Use --dry-run to print the plan.`,
	RunE: runFix,
}

func init() {
	fixOut.register(fixCmd, false)
	fixCmd.Flags().StringSliceVar(&fixFixers, "fixers", []string{"dedupe", "inline-dedupe", "csp"}, "fixers to run: dedupe, inline-dedupe, csp, cache-bust")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "print the planned changes without writing")
	fixCmd.Flags().BoolVar(&fixInsertMissing, "insert-missing", false, "csp: insert the policy into pages that have none")
	fixCmd.Flags().StringVar(&fixVersion, "version", "", "cache-bust: version to stamp (default: config or today's date)")
	fixCmd.Flags().BoolVar(&fixNoBackup, "no-backup", false, "do not write backup copies")
	fixCmd.Flags().BoolVar(&fixPagesOnly, "pages-only", false, "only fix the HTML pages listed in the config")
	rootCmd.AddCommand(fixCmd)
}

// buildFixers resolves fixer names in the order given.
func buildFixers(cfg *config.Config, names []string, now time.Time) ([]fixer.Fixer, error) {
	var out []fixer.Fixer
	for _, name := range names {
		switch name {
		case "dedupe":
			out = append(out, fixer.Dedupe{})
		case "inline-dedupe":
			out = append(out, fixer.InlineDedupe{})
		case "csp":
			out = append(out, fixer.CSP{Directives: cfg.CSP.Directives, InsertMissing: fixInsertMissing})
		case "cache-bust":
			version := fixVersion
			if version == "" {
				version = cfg.CacheBust.Version
			}
			if version == "" {
				version = now.Format("20060102")
			}
			out = append(out, fixer.CacheBust{Param: cfg.CacheBust.Param, Version: version})
		default:
			return nil, fmt.Errorf("unknown fixer %q (available: dedupe, inline-dedupe, csp, cache-bust)", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no fixers selected")
	}
	return out, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	if err := fixOut.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	fixers, err := buildFixers(cfg, fixFixers, time.Now())
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	files, err := walkSite(cfg)
	if err != nil {
		return err
	}
	if fixPagesOnly {
		files = scan.FilterPages(files, cfg.Pages)
	}

	plan, err := fixer.NewPlan(ctx, cfg.Root, files, fixers)
	if err != nil {
		return err
	}
	r := plan.Report()

	if fixDryRun {
		fmt.Fprintf(os.Stderr, "Dry run: %d file(s) would change\n", len(plan.Files))
		fixOut.noSave = true
		return fixOut.emit(ctx, cfg, r)
	}
	if len(plan.Files) == 0 {
		fmt.Println("Nothing to fix.")
		return fixOut.emit(ctx, cfg, r)
	}

	log := logging.Named("fix")
	err = fixer.Apply(plan, fixer.ApplyOptions{
		Backup: cfg.Backup.Enabled && !fixNoBackup,
		Suffix: cfg.Backup.Suffix,
		Logger: log,
	})
	if err != nil {
		log.Error("fix rolled back", zap.Error(err))
		r.Changes = nil
		r.Add(report.Finding{
			Rule:     "io",
			Category: report.CategoryIO,
			Severity: report.SeverityError,
			Message:  fmt.Sprintf("no files were changed: %v", err),
		})
		r.Finish()
		if emitErr := fixOut.emit(ctx, cfg, r); emitErr != nil {
			log.Warn("writing report", zap.Error(emitErr))
		}
		return err
	}
	return fixOut.emit(ctx, cfg, r)
}
