// Package target calls the endpoints under test.
package target

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/futig/benchwatch/internal/config"
	"github.com/futig/benchwatch/internal/entity"
	pkghttp "github.com/futig/benchwatch/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

type Invoker struct {
	connector  *pkghttp.Connector
	slashRetry bool
	logger     *zap.Logger
}

func NewInvoker(cfg config.TargetConfig, logger *zap.Logger) *Invoker {
	connector := pkghttp.NewConnector(
		&pkghttp.ConnectorConfig{Logger: logger},
		pkghttp.WithRequestTimeout(cfg.RequestTimeout),
		pkghttp.WithConnClientTimeout(cfg.ConnTimeout),
		pkghttp.WithClientKeepAlive(cfg.KeepAlive),
		pkghttp.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkghttp.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkghttp.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		pkghttp.WithRequestLogging(),
	)

	return &Invoker{
		connector:  connector,
		slashRetry: cfg.SlashRetry,
		logger:     logger,
	}
}

// Invoke issues req and reports the outcome. It never returns an error:
// non-2xx statuses and transport failures yield OK=false.
func (i *Invoker) Invoke(ctx context.Context, req *entity.TargetRequest) *entity.TargetResponse {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "POST"
	}
	if !allowedMethods[method] {
		return &entity.TargetResponse{
			URL: req.URL,
			Err: entity.NewValidationError("method", fmt.Errorf("%w: %s", entity.ErrInvalidParameter, req.Method)),
		}
	}

	headers := withDefaultContentType(req.Headers)

	target := req.URL
	body, query, err := encodeBody(method, headers, req.Body)
	if err != nil {
		return &entity.TargetResponse{URL: target, Err: entity.NewValidationError("body", err)}
	}
	if query != "" {
		target = appendQuery(target, query)
	}

	attempts := uint(1)
	if i.slashRetry && toggleTrailingSlash(target) != target {
		attempts = 2
	}

	var (
		resp *entity.TargetResponse
		n    int
	)
	err = retry.Do(
		func() error {
			n++
			resp = i.send(ctx, method, target, body, headers)
			return resp.Err
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			if attempt+1 >= attempts {
				return
			}
			toggled := toggleTrailingSlash(target)
			ctxzap.Debug(ctx, "retrying target with toggled trailing slash",
				zap.String("from", target),
				zap.String("to", toggled),
				zap.Error(err),
			)
			target = toggled
		}),
	)
	if resp == nil {
		// context was done before the first attempt
		resp = &entity.TargetResponse{URL: target, Err: &entity.InvocationError{URL: target, Err: err}}
	}
	resp.Attempts = n

	if !resp.OK {
		ctxzap.Info(ctx, "target returned no answer",
			zap.String("url", resp.URL),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempts", n),
			zap.Error(resp.Err),
		)
	}
	return resp
}

func (i *Invoker) send(ctx context.Context, method, target string, body []byte, headers map[string]string) *entity.TargetResponse {
	start := time.Now()
	resp, err := i.connector.Send(ctx, method, "", body,
		pkghttp.WithURL(target),
		pkghttp.WithHeaders(headers),
	)
	if err != nil {
		return &entity.TargetResponse{
			URL: target,
			Err: &entity.InvocationError{URL: target, Err: err},
		}
	}

	ctxzap.Debug(ctx, "target responded",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	out := &entity.TargetResponse{
		OK:         resp.OK(),
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		URL:        target,
	}
	if !out.OK {
		out.Err = &entity.InvocationError{URL: target, StatusCode: resp.StatusCode}
	}
	return out
}

func withDefaultContentType(in map[string]string) map[string]string {
	headers := make(map[string]string, len(in)+1)
	hasContentType := false
	for k, v := range in {
		headers[k] = v
		if strings.EqualFold(k, "Content-Type") && v != "" {
			hasContentType = true
		}
	}
	if !hasContentType {
		headers["Content-Type"] = contentTypeJSON
	}
	return headers
}

func contentType(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			mediaType, _, _ := strings.Cut(v, ";")
			return strings.ToLower(strings.TrimSpace(mediaType))
		}
	}
	return ""
}

// encodeBody turns the planned body into wire bytes. GET sends structured
// bodies as query parameters instead.
func encodeBody(method string, headers map[string]string, body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return b, "", nil
	case string:
		if method == "GET" {
			return nil, "", nil
		}
		return []byte(b), "", nil
	}

	if method == "GET" {
		if m, ok := body.(map[string]any); ok {
			return nil, formValues(m).Encode(), nil
		}
		return nil, "", nil
	}

	if contentType(headers) == contentTypeForm {
		if m, ok := body.(map[string]any); ok {
			return []byte(formValues(m).Encode()), "", nil
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return data, "", nil
}

func formValues(m map[string]any) url.Values {
	values := url.Values{}
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			values.Set(k, "")
		case string:
			values.Set(k, t)
		case map[string]any, []any:
			b, _ := json.Marshal(t)
			values.Set(k, string(b))
		default:
			values.Set(k, fmt.Sprint(t))
		}
	}
	return values
}

func appendQuery(target, query string) string {
	if strings.Contains(target, "?") {
		return target + "&" + query
	}
	return target + "?" + query
}

// toggleTrailingSlash adds or removes the trailing slash of the URL path,
// keeping the query string intact.
func toggleTrailingSlash(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	switch {
	case strings.HasSuffix(u.Path, "/") && u.Path != "/":
		u.Path = strings.TrimSuffix(u.Path, "/")
	case u.Path == "" || u.Path == "/":
		return target
	default:
		u.Path += "/"
	}
	if u.RawPath != "" {
		u.RawPath = ""
	}
	return u.String()
}
