package cmd

import (
	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize siteaudit configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure siteaudit for your site and writes a .siteaudit.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
