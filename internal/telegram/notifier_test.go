package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	"go.uber.org/zap"
)

type fakeBotServer struct {
	mu       sync.Mutex
	texts    []string
	failures int
}

func (f *fakeBotServer) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"bench","username":"bench_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"internal"}`))
			return
		}
		f.texts = append(f.texts, r.FormValue("text"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestNotifier(t *testing.T, fake *fakeBotServer) *Notifier {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	n, err := newNotifier(config.TelegramConfig{BotToken: "token", ChatID: 42}, srv.URL+"/bot%s/%s", srv.Client(), zap.NewNop())
	if err != nil {
		t.Fatalf("newNotifier() error = %v", err)
	}
	n.retryBase = time.Millisecond
	return n
}

func TestRunFinishedSendsSummary(t *testing.T) {
	fake := &fakeBotServer{failures: 1}
	n := newTestNotifier(t, fake)

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	n.RunFinished(context.Background(), &entity.Project{ID: "p1", Name: "support"}, &entity.RunReport{
		ProjectID:  "p1",
		State:      entity.RunComplete,
		Pairs:      3,
		Results:    2,
		Passed:     1,
		Skipped:    1,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	})

	if len(fake.texts) != 1 {
		t.Fatalf("messages = %d, want 1", len(fake.texts))
	}
	for _, want := range []string{`"support"`, "COMPLETE", "passed 1", "Pass rate: 50%", "1m30s"} {
		if !strings.Contains(fake.texts[0], want) {
			t.Errorf("message missing %q:\n%s", want, fake.texts[0])
		}
	}
}

func TestIngestionSummary(t *testing.T) {
	text := FormatIngestionSummary(&entity.IngestionStatus{
		ProjectID:      "p1",
		State:          entity.IngestionCompletedWithErrors,
		FilesTotal:     2,
		FilesProcessed: 1,
		Errors:         []entity.FileError{{Filename: "broken.pdf", Error: "invalid file"}},
	})

	for _, want := range []string{"completed_with_errors", "1 of 2", "broken.pdf: invalid file"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestPassRate(t *testing.T) {
	if got := passRate(0, 0); got != "n/a" {
		t.Errorf("passRate(0, 0) = %q", got)
	}
	if got := passRate(2, 3); got != "67%" {
		t.Errorf("passRate(2, 3) = %q", got)
	}
}
