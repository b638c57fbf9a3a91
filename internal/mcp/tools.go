package mcp

import "github.com/mark3labs/mcp-go/mcp"

var scanSiteTool = mcp.NewTool("scan_site",
	mcp.WithDescription("Run the static audit over the site checkout and return the findings as Markdown. The run is recorded in history."),
	mcp.WithArray("rules",
		mcp.Description("Rule names to run (default: all rules)"),
		mcp.WithStringItems(),
	),
	mcp.WithString("min_severity",
		mcp.Description("Only list findings at or above this severity"),
		mcp.Enum("info", "warning", "error"),
	),
)

var listRunsTool = mcp.NewTool("list_runs",
	mcp.WithDescription("List recorded runs, newest first, with finding counts per severity."),
	mcp.WithString("kind",
		mcp.Description("Only list runs of this kind"),
		mcp.Enum("scan", "crawl", "fix", "checklist", "analyze"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of runs to return (default 20)"),
	),
)

var getRunTool = mcp.NewTool("get_run",
	mcp.WithDescription("Get the full Markdown report of a recorded run."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Run id or a unique prefix of it"),
	),
)

var diffRunsTool = mcp.NewTool("diff_runs",
	mcp.WithDescription("Show the findings introduced and resolved between two recorded runs."),
	mcp.WithString("old_id",
		mcp.Required(),
		mcp.Description("Earlier run id or prefix"),
	),
	mcp.WithString("new_id",
		mcp.Required(),
		mcp.Description("Later run id or prefix"),
	),
)
