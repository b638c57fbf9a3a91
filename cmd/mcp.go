package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/logging"
	mcpserver "github.com/doha-kr/siteaudit/internal/mcp"
	"github.com/doha-kr/siteaudit/internal/report"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio exposing scan_site, list_runs, get_run and diff_runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var store *history.Store
		s, closeStore, err := openStore(cfg)
		if err != nil {
			logging.Get().Warn("history unavailable, scans will not be recorded", zap.Error(err))
		} else {
			defer closeStore()
			store = s
		}

		scan := func(ctx context.Context, rules []string) (*report.Report, error) {
			return scanSite(ctx, cfg, rules, false, nil)
		}

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "siteaudit MCP server started on stdio (root=%s)\n", cfg.Root)
		return mcpserver.NewServer(scan, store).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
