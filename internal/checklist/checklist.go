// Package checklist scores pages against configured completeness
// requirements.
package checklist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/config"
	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/quiz"
	"github.com/doha-kr/siteaudit/internal/report"
)

const ruleName = "checklist"

// RequirementResult is the outcome of one requirement on one page.
type RequirementResult struct {
	Requirement config.Requirement
	Count       int
	Passed      bool
	Reason      string
}

// Score is a page's completeness against one checklist.
type Score struct {
	Page      string
	Checklist string
	Passed    int
	Total     int
	Percent   float64
	Results   []RequirementResult
}

// Summary converts s to its report form.
func (s Score) Summary() report.ScoreSummary {
	return report.ScoreSummary{
		Page:      s.Page,
		Checklist: s.Checklist,
		Passed:    s.Passed,
		Total:     s.Total,
		Percent:   s.Percent,
	}
}

// Evaluate checks every requirement against doc. An empty checklist scores
// 100 percent.
func Evaluate(doc *htmldoc.Document, name string, reqs []config.Requirement) Score {
	s := Score{Page: doc.Path, Checklist: name, Total: len(reqs), Percent: 100}
	for _, req := range reqs {
		res := evaluate(doc, req)
		if res.Passed {
			s.Passed++
		}
		s.Results = append(s.Results, res)
	}
	if s.Total > 0 {
		s.Percent = float64(s.Passed) * 100 / float64(s.Total)
	}
	return s
}

// add folds results computed outside the DOM into the score.
func (s *Score) add(results ...RequirementResult) {
	if len(results) == 0 {
		return
	}
	for _, res := range results {
		s.Total++
		if res.Passed {
			s.Passed++
		}
		s.Results = append(s.Results, res)
	}
	s.Percent = float64(s.Passed) * 100 / float64(s.Total)
}

func evaluate(doc *htmldoc.Document, req config.Requirement) RequirementResult {
	res := RequirementResult{Requirement: req}
	sel, err := cascadia.Compile(req.Selector)
	if err != nil {
		res.Reason = fmt.Sprintf("invalid selector %q: %v", req.Selector, err)
		return res
	}

	matches := doc.DOM.FindMatcher(sel)
	if req.Contains != "" {
		matches = matches.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), req.Contains)
		})
	}
	res.Count = matches.Length()

	switch {
	case res.Count < req.Min:
		res.Reason = fmt.Sprintf("found %d, want %s", res.Count, bounds(req))
	case req.Max > 0 && res.Count > req.Max:
		res.Reason = fmt.Sprintf("found %d, want %s", res.Count, bounds(req))
	default:
		res.Passed = true
	}
	return res
}

func bounds(req config.Requirement) string {
	switch {
	case req.Max > 0 && req.Min == req.Max:
		return fmt.Sprintf("exactly %d", req.Min)
	case req.Max > 0:
		return fmt.Sprintf("between %d and %d", req.Min, req.Max)
	default:
		return fmt.Sprintf("at least %d", req.Min)
	}
}

// QuizRequirements derives the requirements of a page that hosts def.
func QuizRequirements(def *quiz.Definition) []config.Requirement {
	return []config.Requirement{
		{
			ID:       "quiz-data",
			Label:    fmt.Sprintf("Quiz data %s loaded", def.OutputName()),
			Selector: fmt.Sprintf(`script[src*=%q]`, def.OutputName()),
			Min:      1,
			Max:      1,
		},
		{
			ID:       "quiz-container",
			Label:    "Question container present",
			Selector: "#quiz-container, .quiz-container, #question-container, .question-container",
			Min:      1,
		},
	}
}

// Runner scores every configured page under Root.
type Runner struct {
	Config  *config.Config
	Root    string
	Quizzes map[string]*quiz.Definition // by id
	Logger  *zap.Logger
}

// Run evaluates the configured pages. Pages that cannot be read are
// reported as error findings and score zero.
func (r *Runner) Run(ctx context.Context) (*report.Report, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rep := report.New(report.KindChecklist, r.Root)

	for _, page := range r.Config.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, reqs := r.Config.ChecklistFor(page)

		var data []RequirementResult
		if page.Quiz != "" {
			def := r.Quizzes[page.Quiz]
			if def == nil {
				rep.Add(finding(report.SeverityWarning, page.Path, fmt.Sprintf("page is bound to unknown quiz %q", page.Quiz)))
			} else {
				reqs = append(append([]config.Requirement(nil), reqs...), QuizRequirements(def)...)
				var stale string
				data, stale = r.checkQuizData(def)
				if stale != "" {
					rep.Add(finding(report.SeverityWarning, page.Path, stale))
				}
			}
		}

		src, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(page.Path)))
		if err != nil {
			rep.Add(finding(report.SeverityError, page.Path, fmt.Sprintf("reading page: %v", err)))
			rep.Scores = append(rep.Scores, report.ScoreSummary{Page: page.Path, Checklist: name, Total: len(reqs) + len(data)})
			continue
		}
		doc, err := htmldoc.Parse(page.Path, src)
		if err != nil {
			rep.Add(finding(report.SeverityError, page.Path, fmt.Sprintf("parsing page: %v", err)))
			rep.Scores = append(rep.Scores, report.ScoreSummary{Page: page.Path, Checklist: name, Total: len(reqs) + len(data)})
			continue
		}

		score := Evaluate(doc, name, reqs)
		score.add(data...)
		for _, res := range score.Results {
			if res.Passed {
				continue
			}
			label := res.Requirement.Label
			if label == "" {
				label = res.Requirement.ID
			}
			f := finding(report.SeverityWarning, page.Path, fmt.Sprintf("%s: %s", label, res.Reason))
			f.Evidence = res.Requirement.Selector
			rep.Add(f)
		}
		rep.Scores = append(rep.Scores, score.Summary())
		log.Debug("page scored",
			zap.String("page", page.Path),
			zap.String("checklist", name),
			zap.Float64("percent", score.Percent))
	}

	rep.Finish()
	return rep, nil
}

// QuizDataRequirements are the counts the generated data module of def
// must carry. They are checked against the module, not the page DOM.
func QuizDataRequirements(def *quiz.Definition) []config.Requirement {
	q, r := len(def.Questions), len(def.Results)
	return []config.Requirement{
		{ID: "quiz-questions", Label: fmt.Sprintf("Quiz data has %d questions", q), Min: q, Max: q},
		{ID: "quiz-results", Label: fmt.Sprintf("Quiz data has %d results", r), Min: r, Max: r},
	}
}

// checkQuizData scores the generated data module of def against the
// definition's question and result counts. It also returns a message when
// the module exists but differs from what the definition renders to now.
func (r *Runner) checkQuizData(def *quiz.Definition) ([]RequirementResult, string) {
	if r.Config.Quizzes.OutputDir == "" {
		return nil, ""
	}
	rel := filepath.ToSlash(filepath.Join(r.Config.Quizzes.OutputDir, def.OutputName()))
	reqs := QuizDataRequirements(def)
	results := make([]RequirementResult, len(reqs))
	fail := func(reason string) []RequirementResult {
		for i, req := range reqs {
			results[i] = RequirementResult{Requirement: req, Reason: reason}
		}
		return results
	}

	got, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(rel)))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fail(fmt.Sprintf("quiz data %s has not been generated", rel)), ""
	case err != nil:
		return fail(fmt.Sprintf("reading quiz data %s: %v", rel, err)), ""
	}

	var stale string
	if want, err := quiz.Render(def); err != nil {
		stale = fmt.Sprintf("rendering quiz %s: %v", def.ID, err)
	} else if !bytes.Equal(got, want) {
		stale = fmt.Sprintf("quiz data %s is out of date with its definition", rel)
	}

	questions, resultCount, err := quiz.Counts(got)
	if err != nil {
		return fail(fmt.Sprintf("reading quiz data %s: %v", rel, err)), stale
	}
	for i, n := range []int{questions, resultCount} {
		results[i] = RequirementResult{Requirement: reqs[i], Count: n, Passed: n == reqs[i].Min}
		if !results[i].Passed {
			results[i].Reason = fmt.Sprintf("found %d, want %s", n, bounds(reqs[i]))
		}
	}
	return results, stale
}

func finding(sev report.Severity, file, msg string) report.Finding {
	return report.Finding{
		Rule:     ruleName,
		Category: report.CategoryChecklist,
		Severity: sev,
		File:     file,
		Message:  msg,
	}
}
