package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/checklist"
	"github.com/doha-kr/siteaudit/internal/logging"
)

var checklistOut outputFlags

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Score configured pages against their completeness checklists",
	Long: `Evaluates every configured page against the checklist it names, or the one
for its page type. Pages bound to a quiz also get requirements derived from
the quiz definition, and the generated quiz data file is checked for drift.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checklistOut.validate(); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.Named("checklist")
		quizzes, err := loadQuizzes(cfg)
		if err != nil {
			log.Warn("some quiz definitions are invalid", zap.Error(err))
		}

		ctx, stop := signalContext()
		defer stop()
		runner := &checklist.Runner{Config: cfg, Root: cfg.Root, Quizzes: quizzes, Logger: log}
		r, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		return checklistOut.emit(ctx, cfg, r)
	},
}

func init() {
	checklistOut.register(checklistCmd, true)
	rootCmd.AddCommand(checklistCmd)
}
