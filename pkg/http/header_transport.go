package http

import "net/http"

// headerTransport fills in default headers the request did not set itself.
type headerTransport struct {
	headers   http.Header
	transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	for name, values := range t.headers {
		if reqCopy.Header.Get(name) == "" {
			reqCopy.Header[name] = values
		}
	}
	return t.transport.RoundTrip(reqCopy)
}

// WithDefaultHeaders adds headers to every request that does not carry them.
func WithDefaultHeaders(headers map[string]string) HttpOpts {
	h := make(http.Header, len(headers))
	for name, value := range headers {
		if value != "" {
			h.Set(name, value)
		}
	}
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		if len(h) == 0 {
			return rt
		}
		return &headerTransport{headers: h, transport: rt}
	})
}

// WithAuthToken sends a bearer token unless the request has its own
// Authorization header.
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return WithDefaultHeaders(nil)
	}
	return WithDefaultHeaders(map[string]string{"Authorization": "Bearer " + token})
}
