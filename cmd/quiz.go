package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doha-kr/siteaudit/internal/quiz"
)

var (
	quizDir    string
	quizOutDir string
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Validate quiz definitions and generate their data files",
}

var quizValidateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate quiz definitions",
	Long:  `Validates the given definition files, or every *.yml file in the quiz directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var defs []*quiz.Definition
		if len(args) > 0 {
			var errs []error
			for _, path := range args {
				def, err := quiz.Load(path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				defs = append(defs, def)
			}
			err = errors.Join(errs...)
		} else {
			dir := quizDir
			if dir == "" {
				dir = sitePath(cfg, cfg.Quizzes.Dir)
			}
			defs, err = quiz.LoadDir(dir)
		}

		for _, def := range defs {
			fmt.Printf("ok  %-12s %-10s %d questions, %d results\n", def.ID, def.Kind, len(def.Questions), len(def.Results))
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return fmt.Errorf("quiz validation failed")
		}
		return nil
	},
}

var quizGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate <id>-data.js modules from quiz definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dir := quizDir
		if dir == "" {
			dir = sitePath(cfg, cfg.Quizzes.Dir)
		}
		out := quizOutDir
		if out == "" {
			out = sitePath(cfg, cfg.Quizzes.OutputDir)
		}

		written, err := quiz.GenerateAll(dir, out)
		for _, path := range written {
			fmt.Printf("wrote %s\n", path)
		}
		return err
	},
}

func init() {
	quizCmd.PersistentFlags().StringVar(&quizDir, "dir", "", "quiz definition directory (default: quizzes.dir from config)")
	quizGenerateCmd.Flags().StringVar(&quizOutDir, "out", "", "output directory (default: quizzes.output_dir from config)")
	quizCmd.AddCommand(quizValidateCmd, quizGenerateCmd)
	rootCmd.AddCommand(quizCmd)
}
