package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, handler http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	NewRequestLoggingMiddleware(logger).Handler(handler).ServeHTTP(rec, req)
	return rec, buf.String()
}

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("User-Agent", "Mozilla/5.0 TestBrowser")

	_, out := serve(t, ok, req)

	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "path=/state")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "duration_ms=")
	assert.Contains(t, out, "ip=192.168.1.1")
	assert.Contains(t, out, "TestBrowser")
}

func TestRequestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.195, 10.0.0.2"}, "ip=203.0.113.195"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "ip=198.51.100.7"},
		{"remote addr", nil, "ip=10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/state", nil)
			req.RemoteAddr = "10.0.0.1:8080"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			_, out := serve(t, ok, req)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRequestLoggingMiddleware_ServerErrorsLogAtWarn(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}

	_, out := serve(t, handler, httptest.NewRequest(http.MethodPost, "/analyze", nil))
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=502")
}

func TestRequestLoggingMiddleware_RedactsSensitiveQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/state?key=AIzaSecret&X-Amz-Signature=abc123&view=full", nil)

	_, out := serve(t, ok, req)

	assert.NotContains(t, out, "AIzaSecret")
	assert.NotContains(t, out, "abc123")
	assert.Contains(t, out, "view=full")
	assert.Contains(t, out, "[REDACTED]")
}

func TestRequestLoggingMiddleware_PassesRequestThrough(t *testing.T) {
	called := false
	handler := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("response body"))
	}

	rec, out := serve(t, handler, httptest.NewRequest(http.MethodPost, "/image", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "value", rec.Header().Get("X-Custom"))
	assert.Equal(t, "response body", rec.Body.String())
	assert.Contains(t, out, "bytes=13")
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics", "/files/previews/abc.jpg"} {
		t.Run(path, func(t *testing.T) {
			_, out := serve(t, ok, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Empty(t, out)
		})
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		path  string
		query string
		want  string
	}{
		{"/state", "", "/state"},
		{"/state", "token=x", "/state?token=[REDACTED]"},
		{"/state", "flag", "/state"},
		{"/state", "a=1&API_KEY=z", "/state?a=1&API_KEY=[REDACTED]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizePath(tt.path, tt.query))
	}
}
