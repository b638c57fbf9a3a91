package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/advisor"
	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/crawler"
	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/llm"
	"github.com/doha-kr/siteaudit/internal/logging"
	"github.com/doha-kr/siteaudit/internal/report"
)

var (
	analyzeOut    outputFlags
	analyzeRun    string
	analyzePages  []string
	analyzeTop    int
	analyzeDryRun bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [report.json]",
	Short: "Ask an LLM to prioritise findings and review page structure",
	Long: `Sends a compact summary of a report to the configured model and stores its
recommendations in the notes of a new analyze report. The source report is a
JSON file, a run from history (--run), or the latest scan. With --pages, each
page's outline is reviewed as well and the issues raised become findings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeOut.register(analyzeCmd, false)
	analyzeCmd.Flags().StringVar(&analyzeRun, "run", "", "history run id (or prefix) to analyze")
	analyzeCmd.Flags().StringSliceVar(&analyzePages, "pages", nil, "page paths whose structure the model should review")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 40, "findings included in the prompt")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "print the prompt and estimated cost without calling the model")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := analyzeOut.validate(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	src, err := sourceReport(ctx, cfg, args)
	if err != nil {
		return err
	}

	prompt := advisor.ReviewPrompt(src, analyzeTop)
	if analyzeDryRun {
		in := llm.EstimateTokens(prompt)
		fmt.Println(prompt)
		fmt.Fprintf(os.Stderr, "\nEstimated input: ~%d tokens, ~$%.4f with %s (output up to %d tokens)\n",
			in, llm.EstimateCost(cfg.LLM.Model, in, cfg.LLM.MaxTokens), cfg.LLM.Model, cfg.LLM.MaxTokens)
		return nil
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if errors.Is(err, llm.ErrDisabled) {
		return fmt.Errorf("llm.provider is none; set it in %s to use analyze", cfgFile)
	}
	if err != nil {
		return fmt.Errorf("creating LLM provider: %w", err)
	}

	log := logging.Named("analyze")
	r := report.New(report.KindAnalyze, src.Target)
	for _, f := range src.Findings {
		f.ID = "" // findings get fresh ids in the new run
		r.Add(f)
	}
	r.Scores = src.Scores
	opts := advisor.Options{Model: cfg.LLM.Model, MaxTokens: cfg.LLM.MaxTokens, TopFindings: analyzeTop}

	var total advisor.Usage
	for _, path := range analyzePages {
		doc, err := readPage(cfg, path)
		if err != nil {
			return err
		}
		url := crawler.PageURL(cfg.BaseURL, path)
		review, findings, usage, err := advisor.ReviewPage(ctx, provider, url, doc, opts)
		addUsage(&total, usage)
		if err != nil {
			log.Warn("page review failed", zap.String("page", path), zap.Error(err))
			continue
		}
		r.Add(findings...)
		if review.Summary != "" {
			r.Notes += fmt.Sprintf("### %s\n\n%s\n\n", path, review.Summary)
		}
	}

	usage, err := advisor.Review(ctx, provider, r, opts)
	addUsage(&total, usage)
	if err != nil {
		return err
	}
	r.Finish()

	if err := analyzeOut.emit(ctx, cfg, r); err != nil {
		return err
	}
	if analyzeOut.format == "table" {
		fmt.Println()
		fmt.Println(r.Notes)
	}
	fmt.Fprintf(os.Stderr, "Model %s: %d input / %d output tokens, ~$%.4f\n",
		total.Model, total.InputTokens, total.OutputTokens, total.CostUSD)
	return nil
}

func addUsage(total *advisor.Usage, u advisor.Usage) {
	if u.Model != "" {
		total.Model = u.Model
	}
	total.InputTokens += u.InputTokens
	total.OutputTokens += u.OutputTokens
	total.CostUSD += u.CostUSD
}

// sourceReport loads the report to analyze: a JSON file, a history run,
// or the latest scan.
func sourceReport(ctx context.Context, cfg *config.Config, args []string) (*report.Report, error) {
	if len(args) == 1 {
		return report.ReadJSON(args[0])
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	if analyzeRun != "" {
		return store.Get(ctx, analyzeRun)
	}
	r, err := store.Latest(ctx, report.KindScan)
	if errors.Is(err, history.ErrNotFound) {
		return nil, fmt.Errorf("no scan recorded yet; run `siteaudit scan` first or pass a report file")
	}
	return r, err
}

func readPage(cfg *config.Config, path string) (*htmldoc.Document, error) {
	src, err := os.ReadFile(filepath.Join(cfg.Root, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("reading page %s: %w", path, err)
	}
	return htmldoc.Parse(path, src)
}
