package report

import (
	"fmt"
	"sort"
	"strings"
)

// RenderMarkdown renders r as a GitHub-flavoured Markdown document.
func RenderMarkdown(r *Report) string {
	var b strings.Builder
	sum := r.Summary()

	fmt.Fprintf(&b, "# %s report\n\n", capitalize(string(r.Kind)))
	fmt.Fprintf(&b, "- **Target:** `%s`\n", r.Target)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", r.ID)
	fmt.Fprintf(&b, "- **Started:** %s\n", r.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d := r.Duration(); d > 0 {
		fmt.Fprintf(&b, "- **Duration:** %s\n", d.Round(1e6))
	}
	b.WriteString("\n## Summary\n\n")
	b.WriteString("| Severity | Count |\n|---|---|\n")
	for _, sev := range []Severity{SeverityError, SeverityWarning, SeverityInfo} {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, sum.BySeverity[sev])
	}
	fmt.Fprintf(&b, "\n%d findings across %d files.\n", sum.Total, sum.FilesAffected)

	if len(sum.ByCategory) > 0 {
		b.WriteString("\n### By category\n\n")
		cats := make([]string, 0, len(sum.ByCategory))
		for c := range sum.ByCategory {
			cats = append(cats, string(c))
		}
		sort.Strings(cats)
		for _, c := range cats {
			fmt.Fprintf(&b, "- %s: %d\n", c, sum.ByCategory[Category(c)])
		}
	}

	if len(r.Scores) > 0 {
		b.WriteString("\n## Checklist scores\n\n| Page | Checklist | Passed | Score |\n|---|---|---|---|\n")
		for _, s := range r.Scores {
			fmt.Fprintf(&b, "| %s | %s | %d/%d | %.0f%% |\n", s.Page, s.Checklist, s.Passed, s.Total, s.Percent)
		}
		fmt.Fprintf(&b, "\nOverall: **%.1f%%**\n", sum.Score)
	}

	if len(r.Pages) > 0 {
		b.WriteString("\n## Pages\n\n| URL | Status | Time (ms) | Bytes |\n|---|---|---|---|\n")
		for _, p := range r.Pages {
			status := fmt.Sprint(p.Status)
			if p.Error != "" {
				status = "failed"
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", p.URL, status, p.DurationMS, p.Bytes)
		}
	}

	if len(r.Changes) > 0 {
		b.WriteString("\n## Changes\n\n")
		for _, c := range r.Changes {
			fmt.Fprintf(&b, "- `%s` (%s, %s)", location(Finding{File: c.File, Line: c.Line}), c.Fixer, c.Action)
			if c.Before != "" {
				fmt.Fprintf(&b, ": `%s`", inlineCode(c.Before))
			}
			if c.After != "" {
				fmt.Fprintf(&b, " -> `%s`", inlineCode(c.After))
			}
			b.WriteString("\n")
		}
	}

	if len(r.Findings) > 0 {
		b.WriteString("\n## Findings\n")
		byFile := make(map[string][]Finding)
		var files []string
		for _, f := range r.Findings {
			if _, ok := byFile[f.File]; !ok {
				files = append(files, f.File)
			}
			byFile[f.File] = append(byFile[f.File], f)
		}
		sort.Strings(files)
		for _, file := range files {
			fmt.Fprintf(&b, "\n### %s\n\n", file)
			for _, f := range byFile[file] {
				line := ""
				if f.Line > 0 {
					line = fmt.Sprintf(" (line %d)", f.Line)
				}
				fmt.Fprintf(&b, "- **%s** `%s`%s: %s\n", f.Severity, f.Rule, line, f.Message)
				if f.Evidence != "" {
					fmt.Fprintf(&b, "\n  ```html\n  %s\n  ```\n", strings.ReplaceAll(f.Evidence, "\n", "\n  "))
				}
			}
		}
	}

	if r.Notes != "" {
		b.WriteString("\n## Recommendations\n\n")
		b.WriteString(r.Notes)
		b.WriteString("\n")
	}

	return b.String()
}

// inlineCode shortens s to one line for use inside backticks.
func inlineCode(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "`", "'")
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return "Audit"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
