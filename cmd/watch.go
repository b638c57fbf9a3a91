package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/logging"
	"github.com/doha-kr/siteaudit/internal/monitor"
	"github.com/doha-kr/siteaudit/internal/report"
)

var (
	watchRules    []string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-scan the site whenever HTML, CSS or JS files change",
	Long: `Runs a baseline scan, then watches the site root and re-scans after each
burst of changes, printing the findings introduced and resolved. Watch-mode
scans are not recorded in history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		log := logging.Named("watch")
		rescanner := &monitor.Rescanner{
			Scan: func(ctx context.Context) (*report.Report, error) {
				return scanSite(ctx, cfg, watchRules, false, nil)
			},
			Out:    os.Stdout,
			Logger: log,
		}
		base, err := rescanner.Baseline(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Baseline: %d findings. Watching %s (Ctrl+C to stop)\n", len(base.Findings), cfg.Root)

		w := &monitor.Watcher{
			Root:     cfg.Root,
			Debounce: watchDebounce,
			OnChange: rescanner.Handle,
			Logger:   log,
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		w.Wait()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchRules, "rules", nil, "rules to run (default: all)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", monitor.DefaultDebounce, "quiet period before re-scanning")
	rootCmd.AddCommand(watchCmd)
}
