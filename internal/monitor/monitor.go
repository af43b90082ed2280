// Package monitor periodically scans active projects and dispatches test
// runs for the ones whose interval has elapsed.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/logger"
	"github.com/futig/benchwatch/internal/worker"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const releaseTimeout = 5 * time.Second

type ScheduleSource interface {
	ListActiveSchedules(ctx context.Context) ([]entity.ProjectSchedule, error)
}

type TestRunner interface {
	Run(ctx context.Context, projectID string) (*entity.RunReport, error)
}

type Dispatcher interface {
	Submit(id string, task worker.Task) error
}

type Metrics interface {
	CycleFinished(err error)
	Dispatch(result string)
}

type Monitor struct {
	interval     time.Duration
	runTimeout   time.Duration
	maxQueueWait time.Duration

	schedules ScheduleSource
	runner    TestRunner
	pool      Dispatcher
	locker    Locker
	metrics   Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func New(
	cfg config.MonitorConfig,
	schedules ScheduleSource,
	runner TestRunner,
	pool Dispatcher,
	locker Locker,
	metrics Metrics,
	logger *zap.Logger,
) *Monitor {
	maxQueueWait := cfg.MaxQueueWait
	if maxQueueWait <= 0 {
		maxQueueWait = cfg.RunTimeout
	}
	return &Monitor{
		interval:     cfg.Interval,
		runTimeout:   cfg.RunTimeout,
		maxQueueWait: maxQueueWait,
		schedules:  schedules,
		runner:     runner,
		pool:       pool,
		locker:     locker,
		metrics:    metrics,
		logger:     logger.With(zap.String("component", "monitor")),
		now:        time.Now,
	}
}

// IsDue reports whether a project tested last at last is due at now.
// A project that was never tested is always due.
func IsDue(now time.Time, intervalHours int, last *time.Time) bool {
	if intervalHours <= 0 {
		return false
	}
	if last == nil {
		return true
	}
	return !now.Before(last.Add(time.Duration(intervalHours) * time.Hour))
}

// Due returns the active projects whose interval has elapsed.
func (m *Monitor) Due(ctx context.Context) ([]entity.ProjectSchedule, int, error) {
	schedules, err := m.schedules.ListActiveSchedules(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	now := m.now()
	due := make([]entity.ProjectSchedule, 0, len(schedules))
	for _, s := range schedules {
		if IsDue(now, s.TestIntervalHours, s.LastResultAt) {
			due = append(due, s)
		}
	}
	return due, len(schedules), nil
}

// RunCycle performs one scan and hands every due project to the worker
// pool. It does not wait for the runs themselves.
func (m *Monitor) RunCycle(ctx context.Context) (report *entity.CycleReport, err error) {
	ctx = logger.WithAction(ctxzap.ToContext(ctx, m.loggerFrom(ctx)), "monitor_cycle")
	defer func() { m.metrics.CycleFinished(err) }()

	report = &entity.CycleReport{
		StartedAt:  m.now(),
		Due:        []string{},
		Dispatched: []string{},
		Skipped:    []string{},
	}

	due, scanned, err := m.Due(ctx)
	if err != nil {
		ctxzap.Error(ctx, "monitor scan failed", zap.Error(err))
		return report, err
	}
	report.Scanned = scanned

	for _, s := range due {
		report.Due = append(report.Due, s.ProjectID)
		if err := m.dispatch(ctx, s); err != nil {
			report.Skipped = append(report.Skipped, s.ProjectID)
			ctxzap.Info(ctx, "test run not dispatched",
				zap.String("project_id", s.ProjectID),
				zap.Error(err),
			)
			continue
		}
		report.Dispatched = append(report.Dispatched, s.ProjectID)
	}

	ctxzap.Info(ctx, "monitor cycle finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("due", len(report.Due)),
		zap.Int("dispatched", len(report.Dispatched)),
		zap.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

// dispatch locks the project and queues its run. The lock outlives the
// longest allowed queue wait plus the run itself; a job that waited longer
// is dropped instead of run.
func (m *Monitor) dispatch(ctx context.Context, s entity.ProjectSchedule) error {
	lock, err := m.locker.Acquire(ctx, lockKey(s.ProjectID), m.maxQueueWait+m.runTimeout)
	if err != nil {
		if errors.Is(err, entity.ErrAlreadyLocked) {
			m.metrics.Dispatch("locked")
		} else {
			m.metrics.Dispatch("lock_error")
		}
		return err
	}

	runLogger := ctxzap.Extract(ctx).With(zap.String("project_id", s.ProjectID))
	enqueuedAt := m.now()
	err = m.pool.Submit(s.ProjectID, func(workerCtx context.Context) {
		defer m.release(runLogger, lock)

		if waited := m.now().Sub(enqueuedAt); waited > m.maxQueueWait {
			m.metrics.Dispatch("stale")
			runLogger.Warn("test run dropped after waiting in queue",
				zap.Duration("waited", waited),
				zap.Duration("max_queue_wait", m.maxQueueWait),
			)
			return
		}

		runCtx, cancel := context.WithTimeout(ctxzap.ToContext(workerCtx, runLogger), m.runTimeout)
		defer cancel()

		report, err := m.runner.Run(runCtx, s.ProjectID)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			runLogger.Warn("test run timed out", zap.Duration("run_timeout", m.runTimeout))
		case err != nil:
			runLogger.Error("test run failed", zap.Error(err))
		default:
			runLogger.Info("test run finished",
				zap.String("state", string(report.State)),
				zap.Int("results", report.Results),
			)
		}
	})
	if err != nil {
		m.release(runLogger, lock)
		m.metrics.Dispatch("rejected")
		return err
	}

	m.metrics.Dispatch("dispatched")
	return nil
}

func (m *Monitor) release(log *zap.Logger, lock Lock) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := lock.Release(ctx); err != nil {
		log.Warn("failed to release run lock", zap.Error(err))
	}
}

// Start schedules RunCycle every interval. Overlapping cycles are skipped.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cron != nil {
		return nil
	}
	if m.interval <= 0 {
		return fmt.Errorf("monitor interval must be positive, got %s", m.interval)
	}

	cronLog := cronLogger{m.logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	cycleCtx := logger.Detach(ctx)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", m.interval), func() {
		_, _ = m.RunCycle(cycleCtx)
	}); err != nil {
		return fmt.Errorf("schedule monitor cycle: %w", err)
	}

	c.Start()
	m.cron = c
	m.logger.Info("monitor started", zap.Duration("interval", m.interval), zap.Duration("run_timeout", m.runTimeout))
	return nil
}

// Stop prevents new cycles and waits for a running one to return.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		m.logger.Info("monitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) loggerFrom(ctx context.Context) *zap.Logger {
	// ctxzap falls back to a no-op logger whose core is never enabled.
	if l := ctxzap.Extract(ctx); l.Core().Enabled(zap.FatalLevel) {
		return l
	}
	return m.logger
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
