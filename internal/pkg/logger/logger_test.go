package logger

import (
	"context"
	"testing"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{" warn ", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		_, err := New(tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
		}
	}
}

func TestContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ctxzap.ToContext(context.Background(), zap.New(core))

	ctx = WithAction(ctx, "RunCycle")
	ctx = AddFields(ctx, zap.String("project_id", "p1"))

	detached, cancel := context.WithCancel(ctx)
	cancel()
	bg := Detach(detached)
	if bg.Err() != nil {
		t.Fatal("detached context must not inherit cancellation")
	}

	ctxzap.Info(bg, "hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["action"] != "RunCycle" || fields["project_id"] != "p1" {
		t.Fatalf("fields = %v", fields)
	}
}
