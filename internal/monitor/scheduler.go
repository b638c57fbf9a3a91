// Package monitor keeps a site under observation: Scheduler re-crawls it on
// a cron schedule and Watcher re-scans a checkout whenever files change.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/doha-kr/siteaudit/internal/history"
	"github.com/doha-kr/siteaudit/internal/report"
)

// RunFunc produces one report. Scheduler and Watcher call it for every tick
// or change batch.
type RunFunc func(ctx context.Context) (*report.Report, error)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Notifier is told about the findings a run introduced. It reports whether
// anything was sent.
type Notifier interface {
	Notify(ctx context.Context, r *report.Report, d history.Diff) (bool, error)
}

// Scheduler runs a crawl on a cron schedule, stores every report and logs
// what changed against the previous run of the same kind.
type Scheduler struct {
	schedule string
	run      RunFunc
	store    *history.Store
	log      *zap.Logger
	out      io.Writer

	notifier Notifier

	mu sync.Mutex // serializes ticks against RunOnce
}

// NewScheduler validates schedule and returns a Scheduler. out receives a
// human-readable delta after each run and may be nil.
func NewScheduler(schedule string, run RunFunc, store *history.Store, out io.Writer, log *zap.Logger) (*Scheduler, error) {
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if out == nil {
		out = io.Discard
	}
	return &Scheduler{schedule: schedule, run: run, store: store, log: log, out: out}, nil
}

// SetNotifier routes regressions to n.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// RunOnce produces a report, saves it and returns the diff against the
// latest stored run of the same kind. The diff is nil for the first run.
func (s *Scheduler) RunOnce(ctx context.Context) (*report.Report, *history.Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.run(ctx)
	if err != nil {
		return nil, nil, err
	}

	prev, err := s.store.Latest(ctx, r.Kind)
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		return r, nil, fmt.Errorf("loading previous run: %w", err)
	}
	if err := s.store.Save(ctx, r); err != nil {
		return r, nil, fmt.Errorf("saving run: %w", err)
	}

	sum := r.Summary()
	s.log.Info("monitor run finished",
		zap.String("run", r.ID),
		zap.Int("findings", sum.Total),
		zap.Int("pages_failed", sum.PagesFailed))

	if prev == nil {
		fmt.Fprintf(s.out, "%s  baseline run %s: %d findings\n", r.StartedAt.Format("2006-01-02 15:04"), short(r.ID), sum.Total)
		return r, nil, nil
	}
	d := history.Compare(prev, r)
	for _, f := range d.New {
		s.log.Warn("new finding",
			zap.String("rule", f.Rule),
			zap.String("file", f.File),
			zap.String("severity", string(f.Severity)),
			zap.String("message", f.Message))
	}
	WriteDelta(s.out, r, d)
	if s.notifier != nil && len(d.New) > 0 {
		sent, err := s.notifier.Notify(ctx, r, d)
		if err != nil {
			s.log.Error("notification failed", zap.String("run", r.ID), zap.Error(err))
		} else if sent {
			s.log.Info("regressions notified", zap.String("run", r.ID), zap.Int("new", len(d.New)))
		}
	}
	return r, &d, nil
}

// Run starts the schedule and blocks until ctx is cancelled. Ticks that
// arrive while a run is still in progress are skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{log: s.log.Named("cron")}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.schedule, func() {
		if _, _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("monitor run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("scheduling %q: %w", s.schedule, err)
	}

	s.log.Info("monitor started", zap.String("schedule", s.schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("monitor stopped")
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
