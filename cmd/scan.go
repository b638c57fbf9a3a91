package cmd

import (
	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/progress"
)

var (
	scanOut       outputFlags
	scanRules     []string
	scanPagesOnly bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Audit the site checkout without changing it",
	Long: `Walks the site root, parses every HTML, CSS and JS file and runs the rule
engine: duplicate resources, CSP, cache busting, missing references, basics,
SEO, AdSense readiness, unused CSS classes and orphan assets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := scanOut.validate(); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signalContext()
		defer stop()

		r, err := scanSite(ctx, cfg, scanRules, scanPagesOnly, progress.NewReporter("Scanning"))
		if err != nil {
			return err
		}
		return scanOut.emit(ctx, cfg, r)
	},
}

func init() {
	scanOut.register(scanCmd, true)
	scanCmd.Flags().StringSliceVar(&scanRules, "rules", nil, "rules to run (default: all)")
	scanCmd.Flags().BoolVar(&scanPagesOnly, "pages-only", false, "only scan the HTML pages listed in the config")
	rootCmd.AddCommand(scanCmd)
}
