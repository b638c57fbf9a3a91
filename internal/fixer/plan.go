package fixer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/walker"
)

// FileChange is the planned rewrite of one file.
type FileChange struct {
	RelPath string
	Path    string
	Before  []byte
	After   []byte
	Changes []report.Change
}

// Plan is the full set of rewrites computed before anything is written.
type Plan struct {
	Root   string
	Files  []FileChange
	Errors []error
}

// Changes returns every planned edit.
func (p *Plan) Changes() []report.Change {
	var out []report.Change
	for _, f := range p.Files {
		out = append(out, f.Changes...)
	}
	return out
}

// Report converts the plan into a fix report. Files the fixers could not
// process are listed as io findings.
func (p *Plan) Report() *report.Report {
	r := report.New(report.KindFix, p.Root)
	r.Changes = p.Changes()
	for _, err := range p.Errors {
		var fe *FileError
		file := ""
		if errors.As(err, &fe) {
			file = fe.RelPath
		}
		r.Add(report.Finding{
			Rule:     "io",
			Category: report.CategoryIO,
			Severity: report.SeverityError,
			File:     file,
			Message:  err.Error(),
		})
	}
	r.Finish()
	return r
}

// FileError ties an error to the file it occurred on.
type FileError struct {
	RelPath string
	Err     error
}

func (e *FileError) Error() string { return e.RelPath + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// NewPlan runs fixers over every HTML file and records the resulting
// content without touching the disk.
func NewPlan(ctx context.Context, root string, files []walker.FileInfo, fixers []Fixer) (*Plan, error) {
	plan := &Plan{Root: root}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.Kind != walker.KindHTML {
			continue
		}
		src, err := os.ReadFile(f.Path)
		if err != nil {
			plan.Errors = append(plan.Errors, &FileError{RelPath: f.RelPath, Err: err})
			continue
		}
		out, changes, err := Chain(f.RelPath, src, fixers)
		if errors.Is(err, ErrNoChange) {
			continue
		}
		if err != nil {
			plan.Errors = append(plan.Errors, &FileError{RelPath: f.RelPath, Err: err})
			continue
		}
		plan.Files = append(plan.Files, FileChange{
			RelPath: f.RelPath,
			Path:    f.Path,
			Before:  src,
			After:   out,
			Changes: changes,
		})
	}
	return plan, nil
}

// ApplyOptions controls Apply.
type ApplyOptions struct {
	Backup bool
	Suffix string
	Logger *zap.Logger
}

// ErrConflict is returned when a file changed between planning and
// applying.
var ErrConflict = errors.New("file changed since the plan was made")

// Apply writes the plan. Each file is checked against the content it was
// planned from, optionally backed up to <path><suffix> (an existing backup
// is left alone so it keeps the oldest content), then replaced through a
// temporary file and rename. If any file fails, every file already written
// in this run is put back and the backups created by this run are removed.
func Apply(plan *Plan, opts ApplyOptions) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Backup && opts.Suffix == "" {
		return fmt.Errorf("backup suffix is required")
	}

	var (
		written []FileChange
		backups []string
	)

	rollback := func(cause error) error {
		errs := []error{cause}
		for i := len(written) - 1; i >= 0; i-- {
			f := written[i]
			if err := writeAtomic(f.Path, f.Before); err != nil {
				errs = append(errs, fmt.Errorf("rolling back %s: %w", f.RelPath, err))
				continue
			}
			log.Info("rolled back", zap.String("file", f.RelPath))
		}
		for _, b := range backups {
			if err := os.Remove(b); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("removing backup %s: %w", b, err))
			}
		}
		return errors.Join(errs...)
	}

	for _, f := range plan.Files {
		current, err := os.ReadFile(f.Path)
		if err != nil {
			return rollback(&FileError{RelPath: f.RelPath, Err: err})
		}
		if !bytes.Equal(current, f.Before) {
			return rollback(&FileError{RelPath: f.RelPath, Err: ErrConflict})
		}

		if opts.Backup {
			backup := f.Path + opts.Suffix
			if _, err := os.Stat(backup); errors.Is(err, fs.ErrNotExist) {
				if err := writeAtomic(backup, f.Before); err != nil {
					return rollback(&FileError{RelPath: f.RelPath, Err: fmt.Errorf("writing backup: %w", err)})
				}
				backups = append(backups, backup)
			} else if err != nil {
				return rollback(&FileError{RelPath: f.RelPath, Err: err})
			}
		}

		if err := writeAtomic(f.Path, f.After); err != nil {
			return rollback(&FileError{RelPath: f.RelPath, Err: err})
		}
		written = append(written, f)
		log.Debug("rewrote file", zap.String("file", f.RelPath), zap.Int("changes", len(f.Changes)))
	}
	return nil
}

// writeAtomic replaces path with data via a temporary file in the same
// directory, keeping the existing file mode.
func writeAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Restore copies every <file><suffix> backup under root over <file>. With
// remove, the backups are deleted afterwards. It returns the restored
// site-relative paths.
func Restore(root, suffix string, remove bool) ([]string, error) {
	if suffix == "" {
		return nil, fmt.Errorf("backup suffix is required")
	}

	var restored []string
	var errs []error
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && walker.ExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), suffix) || d.Name() == suffix {
			return nil
		}

		target := strings.TrimSuffix(path, suffix)
		rel, _ := filepath.Rel(root, target)
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &FileError{RelPath: rel, Err: err})
			return nil
		}
		if err := writeAtomic(target, data); err != nil {
			errs = append(errs, &FileError{RelPath: rel, Err: err})
			return nil
		}
		if remove {
			if err := os.Remove(path); err != nil {
				errs = append(errs, &FileError{RelPath: rel, Err: err})
			}
		}
		restored = append(restored, rel)
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}
	return restored, errors.Join(errs...)
}
