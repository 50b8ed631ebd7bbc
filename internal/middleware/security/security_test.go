package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"finvault/internal/log"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig("http://localhost:8083"))
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data: http://localhost:8083")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "no HSTS over plain HTTP")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

var testRoutes = Routes{
	Paths:    []string{"/", "/register", "/logout", "/dashboard/home", "/dashboard/add-income", "/healthz"},
	Prefixes: []string{"/static/"},
}

func TestDetector_Classify(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		want        Reason
	}{
		{"dashboard page", http.MethodGet, "/dashboard/home", "", ReasonNone},
		{"static asset", http.MethodGet, "/static/css/app.css", "", ReasonNone},
		{"login form", http.MethodPost, "/", "application/x-www-form-urlencoded", ReasonNone},
		{"receipt upload", http.MethodPost, "/dashboard/add-income", "multipart/form-data; boundary=x", ReasonNone},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", ReasonTraversal},
		{"encoded traversal", http.MethodGet, "/static/%2e%2e/%2e%2e/etc/passwd", "", ReasonTraversal},
		{"backend login path", http.MethodPost, "/api/auth/login", "application/json", ReasonBackendPath},
		{"backend transactions path", http.MethodGet, "/api/transactions", "", ReasonBackendPath},
		{"unknown page", http.MethodGet, "/wp-admin", "", ReasonUnknownRoute},
		{"unknown dashboard page", http.MethodGet, "/dashboard/settings", "", ReasonUnknownRoute},
		{"password in query", http.MethodGet, "/?email=a@b.co&password=secret", "", ReasonCredentialsInQuery},
		{"token in query", http.MethodGet, "/dashboard/home?token=abc", "", ReasonCredentialsInQuery},
		{"json post", http.MethodPost, "/dashboard/add-income", "application/json", ReasonContentType},
		{"trace method", "TRACE", "/", "", ReasonMethod},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", maxURLLength), "", ReasonLongURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(testRoutes)
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			assert.Equal(t, tt.want, d.Classify(req))
		})
	}
}

func TestDetector_DetectSuspiciousRequestCountsByReason(t *testing.T) {
	d := NewDetector(testRoutes)

	_, ok := d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/dashboard/home", nil))
	assert.False(t, ok)

	reason, ok := d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	assert.True(t, ok)
	assert.Equal(t, ReasonBackendPath, reason)
	_, _ = d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/phpmyadmin", nil))
	_, _ = d.DetectSuspiciousRequest(httptest.NewRequest(http.MethodGet, "/.env", nil))

	m := d.GetMetrics()
	assert.Equal(t, int64(3), m.SuspiciousRequests)
	assert.Equal(t, int64(1), m.ByReason[ReasonBackendPath])
	assert.Equal(t, int64(2), m.ByReason[ReasonUnknownRoute])
	assert.Zero(t, m.ByReason[ReasonTraversal])
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector(testRoutes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.5")
	assert.Equal(t, "203.0.113.7", d.ExtractClientIP(req), "trusted proxy forwards the client")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "198.51.100.9", d.ExtractClientIP(req), "untrusted peers cannot spoof")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-an-ip"
	assert.Equal(t, "not-an-ip", d.ExtractClientIP(req))
	assert.Equal(t, int64(1), d.GetMetrics().InvalidIPAttempts)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9000"
	req.Header.Set("X-Real-IP", "203.0.113.8")
	assert.Equal(t, "203.0.113.8", d.ExtractClientIP(req), "X-Real-IP from a local proxy")
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector(testRoutes)
	var served int
	handler := d.Middleware(log.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served++
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard/home", nil))
	assert.Equal(t, 2, served, "flagged requests are still served")
	assert.Equal(t, int64(1), d.GetMetrics().SuspiciousRequests)
}
