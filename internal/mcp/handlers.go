package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
)

const noHistory = "No history database is open. Set db_path in .siteaudit.yml."

func (s *Server) handleScanSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.scan == nil {
		return mcp.NewToolResultError("scanning is not configured"), nil
	}
	rules := request.GetStringSlice("rules", nil)

	var threshold report.Severity
	if v := request.GetString("min_severity", ""); v != "" {
		sev, err := report.ParseSeverity(v)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		threshold = sev
	}

	r, err := s.scan(ctx, rules)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	if s.store != nil {
		if err := s.store.Save(ctx, r); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("saving run: %v", err)), nil
		}
	}

	view := r
	if threshold != "" {
		cp := *r
		cp.Findings = r.Filter(threshold)
		view = &cp
	}
	return mcp.NewToolResultText(report.RenderMarkdown(view)), nil
}

func (s *Server) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(noHistory), nil
	}
	limit := request.GetInt("limit", 20)
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.store.List(ctx, history.Filter{
		Kind:  report.Kind(request.GetString("kind", "")),
		Limit: limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs recorded yet. Call scan_site first."), nil
	}
	return mcp.NewToolResultText(formatRuns(runs)), nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(noHistory), nil
	}
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(report.RenderMarkdown(r)), nil
}

func (s *Server) handleDiffRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError(noHistory), nil
	}
	oldID, err := request.RequireString("old_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: old_id"), nil
	}
	newID, err := request.RequireString("new_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: new_id"), nil
	}
	d, err := s.store.Diff(ctx, oldID, newID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDiff(d)), nil
}

func formatRuns(runs []history.Run) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d run(s):\n", len(runs)))
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("\n%s  %s  %s\n", r.ID, r.Kind, r.StartedAt.Format("2006-01-02 15:04:05")))
		sb.WriteString(fmt.Sprintf("Target: %s\n", r.Target))
		sb.WriteString(fmt.Sprintf("Findings: %d errors, %d warnings, %d info\n", r.Errors, r.Warnings, r.Infos))
		if r.Changes > 0 {
			sb.WriteString(fmt.Sprintf("Changes: %d\n", r.Changes))
		}
		if r.Score != nil {
			sb.WriteString(fmt.Sprintf("Checklist score: %.1f%%\n", *r.Score))
		}
	}
	return sb.String()
}

func formatDiff(d *history.Diff) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s -> %s: %d new, %d resolved, %d unchanged\n",
		d.OldID, d.NewID, len(d.New), len(d.Resolved), d.Unchanged))
	write := func(title string, findings []report.Finding) {
		if len(findings) == 0 {
			return
		}
		sb.WriteString("\n" + title + ":\n")
		for _, f := range findings {
			loc := f.File
			if f.Line > 0 {
				loc += fmt.Sprintf(":%d", f.Line)
			}
			sb.WriteString(fmt.Sprintf("- [%s] %s (%s) %s\n", f.Severity, loc, f.Rule, f.Message))
		}
	}
	write("New", d.New)
	write("Resolved", d.Resolved)
	return sb.String()
}
