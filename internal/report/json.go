package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// timestampLayout names report files so that they sort chronologically.
const timestampLayout = "20060102-150405"

// FileName returns the conventional file name for r.
func FileName(r *Report) string {
	ts := r.StartedAt
	if !r.FinishedAt.IsZero() {
		ts = r.FinishedAt
	}
	return fmt.Sprintf("%s-%s.json", r.Kind, ts.UTC().Format(timestampLayout))
}

// WriteJSON writes r to dir as <kind>-<timestamp>.json and returns the path.
func WriteJSON(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshalling report: %w", err)
	}

	path := filepath.Join(dir, FileName(r))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
