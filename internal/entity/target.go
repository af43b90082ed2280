package entity

import "strings"

// TargetRequest is one planned call against a project's endpoint.
// Body is a structured tree, raw bytes, or nil.
type TargetRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    any
}

// TargetResponse never carries a transport error out of the invoker as a
// failure of the caller; Err only describes why OK is false.
type TargetResponse struct {
	OK         bool
	StatusCode int
	Body       []byte
	URL        string
	Attempts   int
	Err        error
}

func NewTargetRequest(p *Project, body any) *TargetRequest {
	method := strings.ToUpper(strings.TrimSpace(p.Method))
	if method == "" {
		method = "POST"
	}
	return &TargetRequest{
		URL:     JoinURL(p.BaseURL, p.EndpointPath),
		Method:  method,
		Headers: p.Headers(),
		Body:    body,
	}
}

// JoinURL joins base and path with exactly one slash, keeping the
// trailing slash of path as given.
func JoinURL(base, path string) string {
	base = strings.TrimSpace(base)
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
