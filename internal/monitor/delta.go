package monitor

import (
	"fmt"
	"io"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
)

// WriteDelta prints the findings introduced and resolved by r.
func WriteDelta(w io.Writer, r *report.Report, d history.Diff) {
	stamp := r.StartedAt.Local().Format("2006-01-02 15:04:05")
	if d.Empty() {
		fmt.Fprintf(w, "%s  no change (%d findings)\n", stamp, len(r.Findings))
		return
	}
	fmt.Fprintf(w, "%s  +%d new, -%d resolved, %d unchanged\n", stamp, len(d.New), len(d.Resolved), d.Unchanged)
	for _, f := range d.New {
		fmt.Fprintf(w, "  + [%s] %s %s\n", f.Severity, location(f), f.Message)
	}
	for _, f := range d.Resolved {
		fmt.Fprintf(w, "  - [%s] %s %s\n", f.Severity, location(f), f.Message)
	}
}

func location(f report.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf("%s:%d", f.File, f.Line)
	}
	return f.File
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
