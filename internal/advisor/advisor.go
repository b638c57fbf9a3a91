// Package advisor asks a language model to review audit results and page
// structure.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/doha-kr/siteaudit/internal/htmldoc"
	"github.com/doha-kr/siteaudit/internal/llm"
	"github.com/doha-kr/siteaudit/internal/report"
)

const reviewSystemPrompt = `You are a senior web engineer reviewing an automated audit of a static website that hosts psychological tests, fortune pages and calculator tools. Be concrete and prioritised. Only refer to problems present in the data you are given.`

const pageSystemPrompt = `You are a senior web engineer reviewing the structure of one page of a static website. Return a JSON object only. Do not invent elements that are not in the outline.`

const pagePromptTemplate = `Review this page outline and return a JSON object with exactly these fields:

{
  "summary": "2-3 sentences on the page's structure and quality",
  "issues": [{"severity": "info|warning|error", "message": "what is wrong and how to fix it"}]
}

URL: %s

%s`

// ErrMalformedResponse is returned when the model's page review is not the
// requested JSON.
var ErrMalformedResponse = errors.New("malformed model response")

// Options tunes a review.
type Options struct {
	Model       string
	MaxTokens   int
	TopFindings int // findings included in the prompt; default 40
}

// Usage reports what a review cost.
type Usage struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

func usageOf(resp *llm.CompletionResponse) Usage {
	return Usage{
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		CostUSD:      resp.Cost(),
	}
}

// Review sends a summary of r to the model and stores the recommendations
// as markdown in r.Notes.
func Review(ctx context.Context, provider llm.Provider, r *report.Report, opts Options) (Usage, error) {
	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Model:       opts.Model,
		Messages:    llm.Prompt(reviewSystemPrompt, ReviewPrompt(r, opts.TopFindings)),
		MaxTokens:   opts.MaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return Usage{}, fmt.Errorf("%s review: %w", provider.Name(), err)
	}

	notes := strings.TrimSpace(resp.Content)
	if r.Notes != "" {
		notes = r.Notes + "\n\n" + notes
	}
	r.Notes = notes
	return usageOf(resp), nil
}

// ReviewPrompt renders the user prompt for Review. Findings are ordered by
// severity so that the most important ones survive truncation.
func ReviewPrompt(r *report.Report, top int) string {
	if top <= 0 {
		top = 40
	}
	sum := r.Summary()

	var b strings.Builder
	fmt.Fprintf(&b, "Audit kind: %s\nTarget: %s\n", r.Kind, r.Target)
	fmt.Fprintf(&b, "Findings: %d (%d error, %d warning, %d info) across %d files\n",
		sum.Total, sum.BySeverity[report.SeverityError], sum.BySeverity[report.SeverityWarning],
		sum.BySeverity[report.SeverityInfo], sum.FilesAffected)
	if sum.PagesChecked > 0 {
		fmt.Fprintf(&b, "Pages fetched: %d, failed: %d\n", sum.PagesChecked, sum.PagesFailed)
	}
	if len(r.Scores) > 0 {
		fmt.Fprintf(&b, "Mean checklist score: %.0f%%\n", sum.Score)
	}

	rules := make([]string, 0, len(sum.ByRule))
	for rule := range sum.ByRule {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	if len(rules) > 0 {
		b.WriteString("\nFindings per rule:\n")
		for _, rule := range rules {
			fmt.Fprintf(&b, "- %s: %d\n", rule, sum.ByRule[rule])
		}
	}

	findings := append([]report.Finding(nil), r.Findings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.AtLeast(findings[j].Severity) && findings[i].Severity != findings[j].Severity
	})
	if len(findings) > 0 {
		b.WriteString("\nFindings:\n")
	}
	for i, f := range findings {
		if i == top {
			fmt.Fprintf(&b, "... and %d more\n", len(findings)-top)
			break
		}
		loc := f.File
		if f.Line > 0 {
			loc = fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		fmt.Fprintf(&b, "- [%s] %s %s: %s\n", f.Severity, f.Rule, loc, f.Message)
	}

	b.WriteString("\nWrite a short markdown section titled \"## Recommendations\" with a prioritised list of fixes. Group related findings and name the files to change.")
	return b.String()
}

// PageReview is the model's assessment of one page.
type PageReview struct {
	Summary string `json:"summary"`
	Issues  []struct {
		Severity string `json:"severity"`
		Message  string `json:"message"`
	} `json:"issues"`
}

// ReviewPage asks the model to assess one page's outline and returns the
// issues it raised as findings filed under url.
func ReviewPage(ctx context.Context, provider llm.Provider, url string, doc *htmldoc.Document, opts Options) (*PageReview, []report.Finding, Usage, error) {
	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Model:       opts.Model,
		Messages:    llm.Prompt(pageSystemPrompt, fmt.Sprintf(pagePromptTemplate, url, Outline(doc))),
		MaxTokens:   opts.MaxTokens,
		Temperature: 0.2,
		JSONMode:    true,
	})
	if err != nil {
		return nil, nil, Usage{}, fmt.Errorf("%s page review: %w", provider.Name(), err)
	}
	usage := usageOf(resp)

	var pr PageReview
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &pr); err != nil {
		return nil, nil, usage, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var findings []report.Finding
	for _, issue := range pr.Issues {
		if strings.TrimSpace(issue.Message) == "" {
			continue
		}
		sev, err := report.ParseSeverity(issue.Severity)
		if err != nil {
			sev = report.SeverityInfo
		}
		findings = append(findings, report.Finding{
			Rule:     "llm-review",
			Category: report.CategoryAdvice,
			Severity: sev,
			File:     url,
			Message:  strings.TrimSpace(issue.Message),
		})
	}
	return &pr, findings, usage, nil
}

// extractJSON trims prose or code fences some models wrap around JSON.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
