package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// NewTable returns a rounded table writer mirrored to w.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

// RenderTable prints a summary table followed by at most limit findings,
// most severe first. A limit of zero prints every finding.
func RenderTable(w io.Writer, r *Report, limit int) {
	sum := r.Summary()

	head := NewTable(w)
	head.SetTitle(fmt.Sprintf("%s report: %s", r.Kind, r.Target))
	head.AppendHeader(table.Row{"Metric", "Value"})
	head.AppendRow(table.Row{"Findings", sum.Total})
	head.AppendRow(table.Row{"Errors", sum.BySeverity[SeverityError]})
	head.AppendRow(table.Row{"Warnings", sum.BySeverity[SeverityWarning]})
	head.AppendRow(table.Row{"Info", sum.BySeverity[SeverityInfo]})
	head.AppendRow(table.Row{"Files affected", sum.FilesAffected})
	if len(r.Changes) > 0 {
		head.AppendRow(table.Row{"Files changed", sum.FilesChanged})
		head.AppendRow(table.Row{"Edits", len(r.Changes)})
	}
	if len(r.Pages) > 0 {
		head.AppendRow(table.Row{"Pages checked", sum.PagesChecked})
		head.AppendRow(table.Row{"Pages failed", sum.PagesFailed})
	}
	if len(r.Scores) > 0 {
		head.AppendRow(table.Row{"Checklist score", fmt.Sprintf("%.1f%%", sum.Score)})
	}
	head.Render()

	if len(r.Scores) > 0 {
		scores := NewTable(w)
		scores.AppendHeader(table.Row{"Page", "Checklist", "Passed", "Score"})
		for _, s := range r.Scores {
			scores.AppendRow(table.Row{s.Page, s.Checklist, fmt.Sprintf("%d/%d", s.Passed, s.Total), fmt.Sprintf("%.0f%%", s.Percent)})
		}
		scores.Render()
	}

	if len(r.Findings) == 0 {
		return
	}

	findings := append([]Finding(nil), r.Findings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.rank() > findings[j].Severity.rank()
	})
	if limit > 0 && len(findings) > limit {
		findings = findings[:limit]
	}

	t := NewTable(w)
	t.AppendHeader(table.Row{"Severity", "Rule", "Location", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 80},
	})
	for _, f := range findings {
		t.AppendRow(table.Row{colorSeverity(f.Severity), f.Rule, location(f), f.Message})
	}
	if hidden := len(r.Findings) - len(findings); hidden > 0 {
		t.AppendFooter(table.Row{"", "", "", fmt.Sprintf("... and %d more", hidden)})
	}
	t.Render()
}

func colorSeverity(s Severity) string {
	switch s {
	case SeverityError:
		return text.FgRed.Sprint(s)
	case SeverityWarning:
		return text.FgYellow.Sprint(s)
	default:
		return text.FgCyan.Sprint(s)
	}
}

func location(f Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}
