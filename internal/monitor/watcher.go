package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
	"github.com/doha-kr/siteaudit/internal/walker"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before re-scanning.
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls OnChange with the site-relative paths of HTML, CSS and JS
// files created, written, removed or renamed under Root.
type Watcher struct {
	Root     string
	Debounce time.Duration
	OnChange func(ctx context.Context, changed []string)
	Logger   *zap.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Start registers Root and every non-excluded directory below it, then
// processes events in the background until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if w.OnChange == nil {
		return errors.New("watcher: OnChange is required")
	}
	if w.Logger == nil {
		w.Logger = zap.NewNop()
	}
	if w.Debounce <= 0 {
		w.Debounce = DefaultDebounce
	}
	root, err := filepath.Abs(w.Root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	w.Root = root

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	w.fsw = fsw
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return err
	}

	w.done = make(chan struct{})
	go w.loop(ctx)
	return nil
}

// Wait blocks until the event loop has exited.
func (w *Watcher) Wait() {
	if w.done != nil {
		<-w.done
	}
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("walking %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root && walker.ExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.Logger.Warn("watch failed", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}

// relevant reports whether the event concerns an audited file and returns
// its site-relative path.
func (w *Watcher) relevant(name string) (string, bool) {
	rel, err := filepath.Rel(w.Root, name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if walker.IsBackup(rel) || walker.DetectKind(rel) == walker.KindOther {
		return "", false
	}
	return rel, true
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		w.fsw.Close()
		close(w.done)
	}()

	pending := make(map[string]bool)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if !walker.ExcludedDir(fi.Name()) {
						_ = w.addTree(ev.Name)
					}
					continue
				}
			}
			rel, ok := w.relevant(ev.Name)
			if !ok {
				continue
			}
			pending[rel] = true
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.Debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.Logger.Warn("watcher error", zap.Error(err))
		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for rel := range pending {
				changed = append(changed, rel)
			}
			sort.Strings(changed)
			clear(pending)
			w.Logger.Debug("files changed", zap.Strings("files", changed))
			w.OnChange(ctx, changed)
		}
	}
}

// Rescanner re-runs a scan after each change batch and prints the delta
// against the previous scan.
type Rescanner struct {
	Scan   RunFunc
	Out    io.Writer
	Logger *zap.Logger

	prev *report.Report
}

// Baseline runs the first scan. Later calls to Handle are compared to it.
func (r *Rescanner) Baseline(ctx context.Context) (*report.Report, error) {
	rep, err := r.Scan(ctx)
	if err != nil {
		return nil, err
	}
	r.prev = rep
	return rep, nil
}

// Handle is a Watcher.OnChange callback.
func (r *Rescanner) Handle(ctx context.Context, changed []string) {
	rep, err := r.Scan(ctx)
	if err != nil {
		if ctx.Err() == nil && r.Logger != nil {
			r.Logger.Error("rescan failed", zap.Strings("changed", changed), zap.Error(err))
		}
		return
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	if r.prev == nil {
		fmt.Fprintf(out, "%d findings\n", len(rep.Findings))
	} else {
		WriteDelta(out, rep, history.Compare(r.prev, rep))
	}
	r.prev = rep
}
