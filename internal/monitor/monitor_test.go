package monitor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/worker"
	"go.uber.org/zap"
)

type fakeSchedules struct {
	mu        sync.Mutex
	schedules []entity.ProjectSchedule
	err       error
	scans     int
}

func (f *fakeSchedules) ListActiveSchedules(context.Context) ([]entity.ProjectSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.schedules, f.err
}

func (f *fakeSchedules) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

type fakeRunner struct {
	mu  sync.Mutex
	ran []string
	run func(ctx context.Context, projectID string) error
}

func (f *fakeRunner) Run(ctx context.Context, projectID string) (*entity.RunReport, error) {
	f.mu.Lock()
	f.ran = append(f.ran, projectID)
	f.mu.Unlock()

	report := &entity.RunReport{ProjectID: projectID, State: entity.RunComplete}
	if f.run != nil {
		if err := f.run(ctx, projectID); err != nil {
			report.State = entity.RunFailed
			return report, err
		}
	}
	return report, nil
}

func (f *fakeRunner) projects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.ran...)
	sort.Strings(out)
	return out
}

type fakeMetrics struct {
	mu         sync.Mutex
	cycles     []error
	dispatches map[string]int
}

func (f *fakeMetrics) CycleFinished(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = append(f.cycles, err)
}

func (f *fakeMetrics) Dispatch(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatches == nil {
		f.dispatches = map[string]int{}
	}
	f.dispatches[result]++
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

type fixture struct {
	monitor   *Monitor
	schedules *fakeSchedules
	runner    *fakeRunner
	pool      *worker.Pool
	locker    *MemoryLocker
	metrics   *fakeMetrics
}

func newFixture(t *testing.T, cfg config.MonitorConfig, schedules ...entity.ProjectSchedule) *fixture {
	t.Helper()
	if cfg.RunTimeout == 0 {
		cfg.RunTimeout = time.Second
	}
	f := &fixture{
		schedules: &fakeSchedules{schedules: schedules},
		runner:    &fakeRunner{},
		pool:      worker.New(worker.Config{Name: "monitor", Workers: 2, QueueSize: 8}, zap.NewNop()),
		locker:    NewMemoryLocker(),
		metrics:   &fakeMetrics{},
	}
	f.monitor = New(cfg, f.schedules, f.runner, f.pool, f.locker, f.metrics, zap.NewNop())
	f.monitor.now = func() time.Time { return now }
	return f
}

// drain waits for every dispatched run to finish.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.pool.Stop(ctx); err != nil {
		t.Fatalf("pool stop: %v", err)
	}
}

func TestIsDue(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		last     *time.Time
		want     bool
	}{
		{name: "never tested", interval: 1, last: nil, want: true},
		{name: "interval elapsed", interval: 1, last: ago(2 * time.Hour), want: true},
		{name: "exactly on interval", interval: 1, last: ago(time.Hour), want: true},
		{name: "interval not elapsed", interval: 1, last: ago(10 * time.Minute), want: false},
		{name: "long interval", interval: 24, last: ago(23 * time.Hour), want: false},
		{name: "zero interval", interval: 0, last: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(now, tt.interval, tt.last); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunCycleDispatchesDueProjects(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{},
		entity.ProjectSchedule{ProjectID: "new", TestIntervalHours: 1},
		entity.ProjectSchedule{ProjectID: "stale", TestIntervalHours: 1, LastResultAt: ago(2 * time.Hour)},
		entity.ProjectSchedule{ProjectID: "fresh", TestIntervalHours: 1, LastResultAt: ago(10 * time.Minute)},
	)
	f.pool.Start()

	report, err := f.monitor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	f.drain(t)

	if report.Scanned != 3 {
		t.Errorf("scanned = %d, want 3", report.Scanned)
	}
	if len(report.Due) != 2 || len(report.Dispatched) != 2 || len(report.Skipped) != 0 {
		t.Errorf("report = %+v", report)
	}
	if got := f.runner.projects(); len(got) != 2 || got[0] != "new" || got[1] != "stale" {
		t.Errorf("ran = %v, want [new stale]", got)
	}

	// Locks are released once the runs finish.
	lock, err := f.locker.Acquire(context.Background(), lockKey("new"), time.Minute)
	if err != nil {
		t.Fatalf("lock still held after run: %v", err)
	}
	lock.Release(context.Background())

	if f.metrics.dispatches["dispatched"] != 2 {
		t.Errorf("dispatch metrics = %v", f.metrics.dispatches)
	}
}

func TestRunCycleSkipsLockedProject(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{},
		entity.ProjectSchedule{ProjectID: "busy", TestIntervalHours: 1},
		entity.ProjectSchedule{ProjectID: "idle", TestIntervalHours: 1},
	)
	f.pool.Start()

	held, err := f.locker.Acquire(context.Background(), lockKey("busy"), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release(context.Background())

	report, err := f.monitor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	f.drain(t)

	if len(report.Skipped) != 1 || report.Skipped[0] != "busy" {
		t.Errorf("skipped = %v, want [busy]", report.Skipped)
	}
	if got := f.runner.projects(); len(got) != 1 || got[0] != "idle" {
		t.Errorf("ran = %v, want [idle]", got)
	}
	if f.metrics.dispatches["locked"] != 1 {
		t.Errorf("dispatch metrics = %v", f.metrics.dispatches)
	}
}

func TestRunCycleQueueFull(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{},
		entity.ProjectSchedule{ProjectID: "a", TestIntervalHours: 1},
		entity.ProjectSchedule{ProjectID: "b", TestIntervalHours: 1},
	)
	// Not started: the single queue slot fills on the first submit.
	f.pool = worker.New(worker.Config{Name: "monitor", Workers: 1, QueueSize: 1}, zap.NewNop())
	f.monitor.pool = f.pool

	report, err := f.monitor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if len(report.Dispatched) != 1 || len(report.Skipped) != 1 {
		t.Fatalf("report = %+v", report)
	}
	rejected := report.Skipped[0]
	lock, err := f.locker.Acquire(context.Background(), lockKey(rejected), time.Minute)
	if err != nil {
		t.Fatalf("lock of rejected project %s not released: %v", rejected, err)
	}
	lock.Release(context.Background())

	f.pool.Start()
	f.drain(t)
	if len(f.runner.projects()) != 1 {
		t.Errorf("ran = %v", f.runner.projects())
	}
}

func TestRunTimeoutCancelsRun(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{RunTimeout: 50 * time.Millisecond},
		entity.ProjectSchedule{ProjectID: "slow", TestIntervalHours: 1},
	)
	got := make(chan error, 1)
	f.runner.run = func(ctx context.Context, _ string) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	}
	f.pool.Start()

	if _, err := f.monitor.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	select {
	case err := <-got:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("run ctx err = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run was not cancelled by the run timeout")
	}
	f.drain(t)
}

func TestRunPanicIsIsolated(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{},
		entity.ProjectSchedule{ProjectID: "boom", TestIntervalHours: 1},
		entity.ProjectSchedule{ProjectID: "fine", TestIntervalHours: 1},
	)
	f.runner.run = func(_ context.Context, projectID string) error {
		if projectID == "boom" {
			panic("runner exploded")
		}
		return nil
	}
	f.pool.Start()

	if _, err := f.monitor.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	f.drain(t)

	if got := f.runner.projects(); len(got) != 2 {
		t.Errorf("ran = %v, want both projects", got)
	}
	lock, err := f.locker.Acquire(context.Background(), lockKey("boom"), time.Minute)
	if err != nil {
		t.Fatalf("lock held after panic: %v", err)
	}
	lock.Release(context.Background())
}

func TestRunCycleScanError(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{})
	f.schedules.err = errors.New("db down")

	_, err := f.monitor.RunCycle(context.Background())
	if err == nil {
		t.Fatal("RunCycle() error = nil, want scan error")
	}
	if len(f.metrics.cycles) != 1 || f.metrics.cycles[0] == nil {
		t.Errorf("cycle metrics = %v", f.metrics.cycles)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{Interval: time.Second})
	f.pool.Start()
	defer f.drain(t)

	if err := f.monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for f.schedules.scanCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no cycle ran after start")
		}
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.monitor.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := f.monitor.Stop(ctx); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestStartRejectsZeroInterval(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{})
	if err := f.monitor.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want interval error")
	}
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	first, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := l.Acquire(ctx, "k", time.Minute); !errors.Is(err, entity.ErrAlreadyLocked) {
		t.Fatalf("second Acquire() err = %v, want ErrAlreadyLocked", err)
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := l.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestMemoryLockerExpires(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "k", 20*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	fresh, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() after expiry error = %v", err)
	}

	// Releasing the expired lock must not free the new holder's lock.
	stale.Release(ctx)
	if _, err := l.Acquire(ctx, "k", time.Minute); !errors.Is(err, entity.ErrAlreadyLocked) {
		t.Fatalf("Acquire() err = %v, want ErrAlreadyLocked", err)
	}
	fresh.Release(ctx)
}

type ttlLocker struct {
	Locker
	mu   sync.Mutex
	ttls []time.Duration
}

func (l *ttlLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	l.mu.Lock()
	l.ttls = append(l.ttls, ttl)
	l.mu.Unlock()
	return l.Locker.Acquire(ctx, key, ttl)
}

func TestLockCoversQueueWaitAndRun(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{RunTimeout: time.Minute, MaxQueueWait: 2 * time.Minute},
		entity.ProjectSchedule{ProjectID: "p", TestIntervalHours: 1},
	)
	locker := &ttlLocker{Locker: f.locker}
	f.monitor.locker = locker
	f.pool.Start()

	if _, err := f.monitor.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	f.drain(t)

	if len(locker.ttls) != 1 || locker.ttls[0] != 3*time.Minute {
		t.Errorf("lock ttls = %v, want [3m]", locker.ttls)
	}
}

func TestMaxQueueWaitDefaultsToRunTimeout(t *testing.T) {
	m := New(config.MonitorConfig{RunTimeout: time.Minute}, nil, nil, nil, nil, nil, zap.NewNop())
	if m.maxQueueWait != time.Minute {
		t.Errorf("maxQueueWait = %s, want 1m", m.maxQueueWait)
	}
}

func TestStaleQueuedRunIsDropped(t *testing.T) {
	f := newFixture(t, config.MonitorConfig{RunTimeout: time.Minute, MaxQueueWait: time.Minute},
		entity.ProjectSchedule{ProjectID: "late", TestIntervalHours: 1},
	)

	// Queued while no worker runs, then dequeued after the allowed wait.
	if _, err := f.monitor.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	f.monitor.now = func() time.Time { return now.Add(2 * time.Minute) }
	f.pool.Start()
	f.drain(t)

	if got := f.runner.projects(); len(got) != 0 {
		t.Errorf("ran = %v, want no runs", got)
	}
	if f.metrics.dispatches["stale"] != 1 {
		t.Errorf("dispatch metrics = %v", f.metrics.dispatches)
	}
	lock, err := f.locker.Acquire(context.Background(), lockKey("late"), time.Minute)
	if err != nil {
		t.Fatalf("lock of dropped run not released: %v", err)
	}
	lock.Release(context.Background())
}

func TestDueHonoursRunWithoutResults(t *testing.T) {
	// A run that stored no rows still stamps the schedule.
	f := newFixture(t, config.MonitorConfig{},
		entity.ProjectSchedule{ProjectID: "target-down", TestIntervalHours: 6, LastResultAt: ago(30 * time.Minute)},
		entity.ProjectSchedule{ProjectID: "never", TestIntervalHours: 6},
	)

	due, scanned, err := f.monitor.Due(context.Background())
	if err != nil {
		t.Fatalf("Due() error = %v", err)
	}
	if scanned != 2 || len(due) != 1 || due[0].ProjectID != "never" {
		t.Errorf("due = %+v (scanned %d), want only never", due, scanned)
	}
}
