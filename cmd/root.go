package cmd

import (
	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/logging"
)

var (
	cfgFile  string
	verbose  bool
	rootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "siteaudit",
	Short: "Audit, fix and monitor the doha.kr static site",
	Long: `siteaudit walks a static site checkout, reports duplicate resources,
CSP and cache-busting problems, missing references, SEO and AdSense issues,
and unused CSS; rewrites files with backups and rollback; crawls the live
site; scores pages against checklists; and generates quiz data files.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".siteaudit.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "site root directory (overrides config)")
}
