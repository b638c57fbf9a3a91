package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/fixer"
)

var (
	restoreSuffix string
	restoreRemove bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore files from the backups written by fix",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		suffix := restoreSuffix
		if suffix == "" {
			suffix = cfg.Backup.Suffix
		}
		restored, err := fixer.Restore(cfg.Root, suffix, restoreRemove)
		for _, rel := range restored {
			fmt.Printf("restored %s\n", rel)
		}
		fmt.Printf("%d file(s) restored from *%s\n", len(restored), suffix)
		return err
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreSuffix, "suffix", "", "backup suffix (default: backup.suffix from config)")
	restoreCmd.Flags().BoolVar(&restoreRemove, "remove", false, "delete the backups after restoring")
	rootCmd.AddCommand(restoreCmd)
}
