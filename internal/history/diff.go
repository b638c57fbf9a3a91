package history

import "github.com/doha-kr/siteaudit/internal/report"

// Diff is the change in findings between two runs, matched by
// fingerprint so that line shifts do not count as changes.
type Diff struct {
	OldID     string           `json:"old_id"`
	NewID     string           `json:"new_id"`
	New       []report.Finding `json:"new"`
	Resolved  []report.Finding `json:"resolved"`
	Unchanged int              `json:"unchanged"`
}

// Empty reports whether nothing was introduced or resolved.
func (d Diff) Empty() bool {
	return len(d.New) == 0 && len(d.Resolved) == 0
}

// Compare diffs two reports. Repeated fingerprints are matched by count.
func Compare(older, newer *report.Report) Diff {
	d := Diff{OldID: older.ID, NewID: newer.ID, New: []report.Finding{}, Resolved: []report.Finding{}}

	remaining := make(map[string]int)
	for _, f := range older.Findings {
		remaining[f.Fingerprint()]++
	}
	for _, f := range newer.Findings {
		fp := f.Fingerprint()
		if remaining[fp] > 0 {
			remaining[fp]--
			d.Unchanged++
			continue
		}
		d.New = append(d.New, f)
	}
	for _, f := range older.Findings {
		fp := f.Fingerprint()
		if remaining[fp] > 0 {
			remaining[fp]--
			d.Resolved = append(d.Resolved, f)
		}
	}
	return d
}
