package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"qwenauth/internal/governor"
	"qwenauth/pkg/logging"
)

// DefaultResourceURL is used when the credentials carry no resource URL.
const DefaultResourceURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// ResourceResolver reports the API host the current credentials are valid
// for.
type ResourceResolver interface {
	ResourceURL(ctx context.Context) string
}

// NormalizeResourceURL turns a resource_url value such as "portal.qwen.ai"
// into an API base URL ending in /v1.
func NormalizeResourceURL(resourceURL string) string {
	base := strings.TrimSpace(resourceURL)
	if base == "" {
		return DefaultResourceURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base
}

// NewHandler returns a reverse proxy that forwards every request to the
// API base URL of the current credentials through transport. Requests may
// address the proxy with or without a leading /v1.
func NewHandler(resources ResourceResolver, transport http.RoundTripper) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			base := NormalizeResourceURL(resources.ResourceURL(pr.In.Context()))
			target, err := url.Parse(base)
			if err != nil {
				logging.Warn("Proxy", "Invalid resource URL %q, using default: %v", base, err)
				target, _ = url.Parse(DefaultResourceURL)
			}

			pr.Out.URL.Path = stripVersionPrefix(pr.Out.URL.Path)
			pr.Out.URL.RawPath = ""
			pr.SetURL(target)
			pr.SetXForwarded()

			// The transport supplies the real credentials.
			pr.Out.Header.Del("Authorization")
			pr.Out.Header.Del("Cookie")
		},
		Transport:     transport,
		FlushInterval: -1,
		ErrorHandler:  writeProxyError,
	}
}

func stripVersionPrefix(path string) string {
	if path == "/v1" {
		return "/"
	}
	if strings.HasPrefix(path, "/v1/") {
		return strings.TrimPrefix(path, "/v1")
	}
	return path
}

// errorBody follows the OpenAI-compatible error shape host applications
// already understand.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeProxyError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	errType := "upstream_error"

	var noCred *governor.NoValidCredentialError
	switch {
	case errors.As(err, &noCred):
		status = http.StatusUnauthorized
		errType = "authentication_error"
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to send.
		logging.Debug("Proxy", "Client cancelled %s %s", r.Method, r.URL.Path)
		return
	default:
		logging.Error("Proxy", err, "Upstream request %s %s failed", r.Method, r.URL.Path)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Message: err.Error(), Type: errType}})
}
