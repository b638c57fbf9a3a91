package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/logging"
	"github.com/doha-kr/siteaudit/internal/monitor"
	"github.com/doha-kr/siteaudit/internal/notify"
	"github.com/doha-kr/siteaudit/internal/report"
)

var (
	monitorSchedule string
	monitorNow      bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Crawl the live site on a cron schedule and report regressions",
	Long: `Crawls the configured pages on monitor.schedule (standard five-field cron
or descriptors such as @hourly), records every crawl in history and logs
findings that were not present in the previous crawl. With
monitor.webhook_url set, new findings at or above monitor.notify_on are
posted to the webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		schedule := monitorSchedule
		if schedule == "" {
			schedule = cfg.Monitor.Schedule
		}
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signalContext()
		defer stop()

		log := logging.Named("monitor")
		crawl := func(ctx context.Context) (*report.Report, error) {
			r, err := crawlSite(ctx, cfg, cfg.Pages, nil)
			if err != nil {
				return nil, err
			}
			if _, err := report.WriteJSON(cfg.ReportDir, r); err != nil {
				log.Warn("writing report", zap.Error(err))
			}
			return r, nil
		}
		s, err := monitor.NewScheduler(schedule, crawl, store, os.Stdout, log)
		if err != nil {
			return err
		}
		if cfg.Monitor.WebhookURL != "" {
			s.SetNotifier(notify.NewWebhook(cfg.Monitor.WebhookURL, report.Severity(cfg.Monitor.NotifyOn)))
		}
		if monitorNow {
			if _, _, err := s.RunOnce(ctx); err != nil {
				return err
			}
		}
		return s.Run(ctx)
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorSchedule, "schedule", "", "cron schedule (overrides monitor.schedule)")
	monitorCmd.Flags().BoolVar(&monitorNow, "now", false, "crawl once immediately before waiting for the schedule")
	rootCmd.AddCommand(monitorCmd)
}
