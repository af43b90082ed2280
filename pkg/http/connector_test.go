package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestConnector(baseURL string, opts ...HttpOpts) *Connector {
	opts = append(opts, WithRequestTimeout(2*time.Second), WithRequestLogging())
	return NewConnector(&ConnectorConfig{BaseURL: baseURL, Logger: zap.NewNop()}, opts...)
}

func TestConnectorSend(t *testing.T) {
	var gotMethod, gotCT, gotBody, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	c := newTestConnector(srv.URL, WithAuthToken("secret"))
	resp, err := c.Send(context.Background(), http.MethodPut, "/chat", []byte(`{"q":"hi"}`),
		WithHeaders(map[string]string{"Content-Type": "text/plain"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if resp.OK() || resp.StatusCode != http.StatusTeapot {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(resp.Body) != "short and stout" {
		t.Errorf("body = %q", resp.Body)
	}
	if gotMethod != http.MethodPut || gotCT != "text/plain" || gotBody != `{"q":"hi"}` {
		t.Errorf("server saw method=%s ct=%s body=%s", gotMethod, gotCT, gotBody)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestConnectorDoRequest(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"ok", http.StatusOK, `{"result":"done"}`, 0},
		{"server error", http.StatusBadGateway, "upstream down", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out struct {
				Result string `json:"result"`
			}
			err := newTestConnector(srv.URL).DoRequest(context.Background(), http.MethodPost, "/x", map[string]string{"a": "b"}, &out)

			if tt.wantStatus == 0 {
				if err != nil || out.Result != "done" {
					t.Fatalf("DoRequest() = %v, result %q", err, out.Result)
				}
				return
			}

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) || httpErr.StatusCode != tt.wantStatus {
				t.Fatalf("DoRequest() error = %v, want HTTPError %d", err, tt.wantStatus)
			}
			if !httpErr.Retryable() {
				t.Error("5xx should be retryable")
			}
		})
	}
}

func TestConnectorNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestConnector(url).Send(context.Background(), http.MethodGet, "/", nil)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Send() error = %v, want NetworkError", err)
	}
}

func TestConnectorMaxResponseBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	resp, err := newTestConnector(srv.URL, WithMaxResponseBytes(4)).Send(context.Background(), http.MethodGet, "", nil)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(resp.Body) != "0123" {
		t.Fatalf("body = %q, want truncated", resp.Body)
	}
}

func TestDefaultHeadersDoNotOverrideRequest(t *testing.T) {
	var gotAuth, gotTenant string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTenant = r.Header.Get("X-Tenant")
	}))
	defer srv.Close()

	c := newTestConnector(srv.URL,
		WithAuthToken("default"),
		WithDefaultHeaders(map[string]string{"X-Tenant": "bench", "X-Empty": ""}),
	)
	_, err := c.Send(context.Background(), http.MethodPost, "/", nil,
		WithHeaders(map[string]string{"Authorization": "Bearer project"}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotAuth != "Bearer project" {
		t.Errorf("Authorization = %q, want request header to win", gotAuth)
	}
	if gotTenant != "bench" {
		t.Errorf("X-Tenant = %q", gotTenant)
	}
}
