// Package history stores finished reports in SQLite and compares runs.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doha-kr/siteaudit/internal/db"
	"github.com/doha-kr/siteaudit/internal/report"
)

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned when an id prefix matches more than one run.
var ErrAmbiguous = errors.New("ambiguous run id")

// Store provides persistence for reports.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Run is the list view of a stored report.
type Run struct {
	ID         string      `json:"id"`
	Kind       report.Kind `json:"kind"`
	Target     string      `json:"target"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Errors     int         `json:"errors"`
	Warnings   int         `json:"warnings"`
	Infos      int         `json:"infos"`
	Changes    int         `json:"changes"`
	Score      *float64    `json:"score,omitempty"` // mean checklist percent
}

// Total is the number of findings in the run.
func (r Run) Total() int { return r.Errors + r.Warnings + r.Infos }

// Filter controls which runs List returns.
type Filter struct {
	Kind   report.Kind
	Target string
	Since  *time.Time
	Limit  int
	Offset int
}

// Save inserts r and all of its rows in one transaction.
func (s *Store) Save(ctx context.Context, r *report.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	finished := ""
	if !r.FinishedAt.IsZero() {
		finished = formatTime(r.FinishedAt)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, kind, target, started_at, finished_at, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.Target, formatTime(r.StartedAt), finished, r.Notes,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", r.ID, err)
	}

	for i, f := range r.Findings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO findings (id, run_id, seq, rule, category, severity, file, line, message, evidence, fingerprint)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, r.ID, i, f.Rule, string(f.Category), string(f.Severity), f.File, f.Line, f.Message, f.Evidence, f.Fingerprint(),
		); err != nil {
			return fmt.Errorf("inserting finding: %w", err)
		}
	}
	for i, c := range r.Changes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO changes (run_id, seq, file, fixer, action, line, before_text, after_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, c.File, c.Fixer, c.Action, c.Line, c.Before, c.After,
		); err != nil {
			return fmt.Errorf("inserting change: %w", err)
		}
	}
	for i, p := range r.Pages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pages (run_id, seq, url, path, status, duration_ms, bytes, content_type, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, p.URL, p.Path, p.Status, p.DurationMS, p.Bytes, p.ContentType, p.Error,
		); err != nil {
			return fmt.Errorf("inserting page: %w", err)
		}
	}
	for i, sc := range r.Scores {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scores (run_id, seq, page, checklist, passed, total, percent)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, sc.Page, sc.Checklist, sc.Passed, sc.Total, sc.Percent,
		); err != nil {
			return fmt.Errorf("inserting score: %w", err)
		}
	}

	return tx.Commit()
}

// Get loads a full report. id may be a unique prefix of a run id.
func (s *Store) Get(ctx context.Context, id string) (*report.Report, error) {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &report.Report{Findings: []report.Finding{}}
	var started, finished string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, kind, target, started_at, finished_at, notes FROM runs WHERE id = ?`, full,
	).Scan(&r.ID, &r.Kind, &r.Target, &started, &finished, &r.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)

	if err := s.loadFindings(ctx, r); err != nil {
		return nil, err
	}
	if err := s.loadChanges(ctx, r); err != nil {
		return nil, err
	}
	if err := s.loadPages(ctx, r); err != nil {
		return nil, err
	}
	if err := s.loadScores(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		id, escapeLike(id)+"%")
	if err != nil {
		return "", fmt.Errorf("resolving run %s: %w", id, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return "", err
		}
		if v == id {
			return v, nil
		}
		ids = append(ids, v)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}

func (s *Store) loadFindings(ctx context.Context, r *report.Report) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule, category, severity, file, line, message, evidence
		FROM findings WHERE run_id = ? ORDER BY seq`, r.ID)
	if err != nil {
		return fmt.Errorf("loading findings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f report.Finding
		if err := rows.Scan(&f.ID, &f.Rule, &f.Category, &f.Severity, &f.File, &f.Line, &f.Message, &f.Evidence); err != nil {
			return err
		}
		r.Findings = append(r.Findings, f)
	}
	return rows.Err()
}

func (s *Store) loadChanges(ctx context.Context, r *report.Report) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file, fixer, action, line, before_text, after_text
		FROM changes WHERE run_id = ? ORDER BY seq`, r.ID)
	if err != nil {
		return fmt.Errorf("loading changes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c report.Change
		if err := rows.Scan(&c.File, &c.Fixer, &c.Action, &c.Line, &c.Before, &c.After); err != nil {
			return err
		}
		r.Changes = append(r.Changes, c)
	}
	return rows.Err()
}

func (s *Store) loadPages(ctx context.Context, r *report.Report) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, path, status, duration_ms, bytes, content_type, error
		FROM pages WHERE run_id = ? ORDER BY seq`, r.ID)
	if err != nil {
		return fmt.Errorf("loading pages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p report.PageResult
		if err := rows.Scan(&p.URL, &p.Path, &p.Status, &p.DurationMS, &p.Bytes, &p.ContentType, &p.Error); err != nil {
			return err
		}
		r.Pages = append(r.Pages, p)
	}
	return rows.Err()
}

func (s *Store) loadScores(ctx context.Context, r *report.Report) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page, checklist, passed, total, percent
		FROM scores WHERE run_id = ? ORDER BY seq`, r.ID)
	if err != nil {
		return fmt.Errorf("loading scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc report.ScoreSummary
		if err := rows.Scan(&sc.Page, &sc.Checklist, &sc.Passed, &sc.Total, &sc.Percent); err != nil {
			return err
		}
		r.Scores = append(r.Scores, sc)
	}
	return rows.Err()
}

// List returns runs matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Run, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Kind != "" {
		clauses = append(clauses, "r.kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Target != "" {
		clauses = append(clauses, "r.target = ?")
		args = append(args, filter.Target)
	}
	if filter.Since != nil {
		clauses = append(clauses, "r.started_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}

	query := `
		SELECT r.id, r.kind, r.target, r.started_at, r.finished_at,
			(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id AND f.severity = 'error'),
			(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id AND f.severity = 'warning'),
			(SELECT COUNT(*) FROM findings f WHERE f.run_id = r.id AND f.severity = 'info'),
			(SELECT COUNT(*) FROM changes c WHERE c.run_id = r.id),
			(SELECT AVG(percent) FROM scores s WHERE s.run_id = r.id)
		FROM runs r`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY r.started_at DESC, r.id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
			score             sql.NullFloat64
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.Target, &started, &finished,
			&run.Errors, &run.Warnings, &run.Infos, &run.Changes, &score); err != nil {
			return nil, err
		}
		if score.Valid {
			run.Score = &score.Float64
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the most recent run of the given kind.
func (s *Store) Latest(ctx context.Context, kind report.Kind) (*report.Report, error) {
	runs, err := s.List(ctx, Filter{Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: no %s runs", ErrNotFound, kind)
	}
	return s.Get(ctx, runs[0].ID)
}

// Diff compares two stored runs.
func (s *Store) Diff(ctx context.Context, oldID, newID string) (*Diff, error) {
	older, err := s.Get(ctx, oldID)
	if err != nil {
		return nil, err
	}
	newer, err := s.Get(ctx, newID)
	if err != nil {
		return nil, err
	}
	d := Compare(older, newer)
	return &d, nil
}

// Prune removes runs started before the given time and returns how many
// were deleted.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	cutoff := formatTime(before)
	for _, table := range []string{"findings", "changes", "pages", "scores"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", cutoff,
		); err != nil {
			return 0, fmt.Errorf("pruning %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(db.TimeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(db.TimeFormat, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
