// Package report defines the result schema shared by every siteaudit run
// and the renderers that turn it into JSON, console tables, Markdown and HTML.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity ranks findings.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as threshold or more.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.rank() > 0 && s.rank() >= threshold.rank()
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if sev.rank() == 0 {
		return "", fmt.Errorf("unknown severity %q: must be one of info, warning, error", s)
	}
	return sev, nil
}

// Category groups findings by concern.
type Category string

const (
	CategoryDuplicates  Category = "duplicates"
	CategoryCSP         Category = "csp"
	CategoryCache       Category = "cache"
	CategoryReferences  Category = "references"
	CategoryBasics      Category = "basics"
	CategorySEO         Category = "seo"
	CategoryAdsense     Category = "adsense"
	CategorySecurity    Category = "security"
	CategoryCSS         Category = "css"
	CategoryAssets      Category = "assets"
	CategoryNetwork     Category = "network"
	CategoryPerformance Category = "performance"
	CategoryChecklist   Category = "checklist"
	CategoryIO          Category = "io"
	CategoryAdvice      Category = "advice"
)

// Kind identifies the command that produced a report.
type Kind string

const (
	KindScan      Kind = "scan"
	KindCrawl     Kind = "crawl"
	KindFix       Kind = "fix"
	KindChecklist Kind = "checklist"
	KindAnalyze   Kind = "analyze"
)

// Finding is one problem detected on a file or page.
type Finding struct {
	ID       string   `json:"id"`
	Rule     string   `json:"rule"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
	Evidence string   `json:"evidence,omitempty"`
}

// Fingerprint identifies a finding across runs independently of its ID and
// line number, so that edits elsewhere in a file do not make it look new.
func (f Finding) Fingerprint() string {
	return f.Rule + "|" + f.File + "|" + f.Message
}

// PageResult records the outcome of fetching one URL.
type PageResult struct {
	URL         string `json:"url"`
	Path        string `json:"path,omitempty"`
	Status      int    `json:"status"`
	DurationMS  int64  `json:"duration_ms"`
	Bytes       int64  `json:"bytes"`
	ContentType string `json:"content_type,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether the page was fetched with a 2xx status.
func (p PageResult) OK() bool {
	return p.Error == "" && p.Status >= 200 && p.Status < 300
}

// Change describes one edit made (or planned) by a fixer.
type Change struct {
	File   string `json:"file"`
	Fixer  string `json:"fixer"`
	Action string `json:"action"` // removed, replaced, inserted
	Line   int    `json:"line,omitempty"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// ScoreSummary is a page's checklist completeness.
type ScoreSummary struct {
	Page      string  `json:"page"`
	Checklist string  `json:"checklist"`
	Passed    int     `json:"passed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// Report is the single result document written by every command.
type Report struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Target     string         `json:"target"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Findings   []Finding      `json:"findings"`
	Pages      []PageResult   `json:"pages,omitempty"`
	Changes    []Change       `json:"changes,omitempty"`
	Scores     []ScoreSummary `json:"scores,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// New starts a report of the given kind.
func New(kind Kind, target string) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Kind:      kind,
		Target:    target,
		StartedAt: time.Now().UTC(),
		Findings:  []Finding{},
	}
}

// Add appends findings, assigning IDs to those without one.
func (r *Report) Add(findings ...Finding) {
	for _, f := range findings {
		if f.ID == "" {
			f.ID = uuid.New().String()
		}
		r.Findings = append(r.Findings, f)
	}
}

// Finish stamps the end time and sorts findings.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
	r.Sort()
}

// Sort orders findings by file, line, rule and message.
func (r *Report) Sort() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// MaxSeverity returns the most severe finding level, or "" when there are
// no findings.
func (r *Report) MaxSeverity() Severity {
	var top Severity
	for _, f := range r.Findings {
		if f.Severity.rank() > top.rank() {
			top = f.Severity
		}
	}
	return top
}

// Filter returns findings at or above threshold.
func (r *Report) Filter(threshold Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity.AtLeast(threshold) {
			out = append(out, f)
		}
	}
	return out
}

// Summary aggregates a report.
type Summary struct {
	Total         int              `json:"total"`
	BySeverity    map[Severity]int `json:"by_severity"`
	ByCategory    map[Category]int `json:"by_category"`
	ByRule        map[string]int   `json:"by_rule"`
	FilesAffected int              `json:"files_affected"`
	FilesChanged  int              `json:"files_changed"`
	PagesChecked  int              `json:"pages_checked"`
	PagesFailed   int              `json:"pages_failed"`
	Score         float64          `json:"score,omitempty"` // mean checklist percent
}

// Summary computes aggregate counts.
func (r *Report) Summary() Summary {
	s := Summary{
		Total:      len(r.Findings),
		BySeverity: make(map[Severity]int),
		ByCategory: make(map[Category]int),
		ByRule:     make(map[string]int),
	}

	files := make(map[string]bool)
	for _, f := range r.Findings {
		s.BySeverity[f.Severity]++
		s.ByCategory[f.Category]++
		s.ByRule[f.Rule]++
		if f.File != "" {
			files[f.File] = true
		}
	}
	s.FilesAffected = len(files)

	changed := make(map[string]bool)
	for _, c := range r.Changes {
		changed[c.File] = true
	}
	s.FilesChanged = len(changed)

	s.PagesChecked = len(r.Pages)
	for _, p := range r.Pages {
		if !p.OK() {
			s.PagesFailed++
		}
	}

	if len(r.Scores) > 0 {
		var total float64
		for _, sc := range r.Scores {
			total += sc.Percent
		}
		s.Score = total / float64(len(r.Scores))
	}

	return s
}
