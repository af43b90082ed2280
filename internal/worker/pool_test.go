package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/futig/benchwatch/internal/entity"
	"go.uber.org/zap"
)

type countingObserver struct {
	mu       sync.Mutex
	finished int
	panics   int
}

func (o *countingObserver) QueueDepth(string, int) {}

func (o *countingObserver) TaskFinished(_ string, panicked bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	if panicked {
		o.panics++
	}
}

func TestPoolRunsTasks(t *testing.T) {
	obs := &countingObserver{}
	p := New(Config{Name: "test", Workers: 3, QueueSize: 10}, zap.NewNop(), WithObserver(obs))
	p.Start()

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := p.Submit("job", func(context.Context) { ran.Add(1) }); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if ran.Load() != 10 {
		t.Errorf("ran = %d, want 10", ran.Load())
	}
	if obs.finished != 10 {
		t.Errorf("observer finished = %d, want 10", obs.finished)
	}
}

func TestPoolQueueFull(t *testing.T) {
	p := New(Config{Name: "full", Workers: 1, QueueSize: 1}, zap.NewNop())
	p.Start()

	block := make(chan struct{})
	started := make(chan struct{})
	if err := p.Submit("a", func(context.Context) { close(started); <-block }); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := p.Submit("b", func(context.Context) {}); err != nil {
		t.Fatalf("second submit should fill the queue: %v", err)
	}
	if err := p.Submit("c", func(context.Context) {}); !errors.Is(err, entity.ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	close(block)
	_ = p.Stop(context.Background())

	if err := p.Submit("d", func(context.Context) {}); !errors.Is(err, entity.ErrPoolStopped) {
		t.Fatalf("err = %v, want ErrPoolStopped", err)
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	obs := &countingObserver{}
	p := New(Config{Name: "panic", Workers: 1, QueueSize: 4}, zap.NewNop(), WithObserver(obs))
	p.Start()

	var after atomic.Bool
	_ = p.Submit("boom", func(context.Context) { panic("boom") })
	_ = p.Submit("after", func(context.Context) { after.Store(true) })
	_ = p.Stop(context.Background())

	if !after.Load() {
		t.Error("task after panic did not run")
	}
	if p.Stats().Panicked != 1 || obs.panics != 1 {
		t.Errorf("panics = %d/%d, want 1", p.Stats().Panicked, obs.panics)
	}
}

func TestPoolStopTimeoutCancelsTasks(t *testing.T) {
	p := New(Config{Name: "slow", Workers: 1, QueueSize: 1}, zap.NewNop())
	p.Start()

	cancelled := make(chan struct{})
	_ = p.Submit("slow", func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop() error = %v, want deadline exceeded", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("running task was not cancelled")
	}
}
