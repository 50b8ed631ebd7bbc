package security

import (
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"finvault/internal/log"
)

// Reason says why a request does not fit the frontend's routes.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonMethod             Reason = "unexpected_method"
	ReasonTraversal          Reason = "path_traversal"
	ReasonBackendPath        Reason = "backend_api_path"
	ReasonUnknownRoute       Reason = "unknown_route"
	ReasonCredentialsInQuery Reason = "credentials_in_query"
	ReasonContentType        Reason = "unexpected_content_type"
	ReasonLongURL            Reason = "long_url"
)

var reasons = []Reason{
	ReasonMethod,
	ReasonTraversal,
	ReasonBackendPath,
	ReasonUnknownRoute,
	ReasonCredentialsInQuery,
	ReasonContentType,
	ReasonLongURL,
}

const maxURLLength = 2048

// Routes is the set of paths the frontend serves. Paths match exactly,
// Prefixes match any path below them.
type Routes struct {
	Paths    []string
	Prefixes []string
}

func (rt Routes) match(path string) bool {
	for _, p := range rt.Paths {
		if path == p {
			return true
		}
	}
	for _, p := range rt.Prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// DetectionMetrics counts flagged requests. ByReason is keyed by Reason.
type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
	ByReason           map[Reason]int64
}

// Detector flags requests that no page of the frontend would send: paths
// outside its routes, backend API paths aimed at the frontend host, and
// credentials carried in a query string.
type Detector struct {
	routes         Routes
	suspicious     atomic.Int64
	invalidIP      atomic.Int64
	byReason       map[Reason]*atomic.Int64
	trustedProxies []*net.IPNet
}

func NewDetector(routes Routes) *Detector {
	d := &Detector{
		routes:   routes,
		byReason: make(map[Reason]*atomic.Int64, len(reasons)),
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
	for _, r := range reasons {
		d.byReason[r] = new(atomic.Int64)
	}
	return d
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("parse trusted proxy %s: %v", cidr, err))
	}
	return network
}

// Classify returns the first reason r looks out of place, or ReasonNone.
func (d *Detector) Classify(r *http.Request) Reason {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		return ReasonMethod
	}
	if len(r.URL.String()) > maxURLLength {
		return ReasonLongURL
	}

	path := r.URL.Path
	if hasDotDot(path) || strings.Contains(strings.ToLower(r.URL.RawPath), "%2e%2e") {
		return ReasonTraversal
	}
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return ReasonBackendPath
	}
	if !d.routes.match(path) {
		return ReasonUnknownRoute
	}

	q := r.URL.Query()
	if q.Has("password") || q.Has("token") {
		return ReasonCredentialsInQuery
	}
	if r.Method == http.MethodPost && !isFormBody(r.Header.Get("Content-Type")) {
		return ReasonContentType
	}
	return ReasonNone
}

func hasDotDot(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// isFormBody reports whether ct is one of the encodings the frontend's
// forms submit.
func isFormBody(ct string) bool {
	if ct == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"
}

// DetectSuspiciousRequest classifies r and counts it when flagged.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) (Reason, bool) {
	reason := d.Classify(r)
	if reason == ReasonNone {
		return reason, false
	}
	d.suspicious.Add(1)
	d.byReason[reason].Add(1)
	return reason, true
}

// Middleware logs and counts flagged requests. They are still served: the
// router sends unknown paths back to the login page.
func (d *Detector) Middleware(logger *log.Logger) func(http.Handler) http.Handler {
	logger = logger.WithComponent(log.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason, ok := d.DetectSuspiciousRequest(r); ok {
				logger.WarnContext(r.Context(), "Suspicious request",
					log.FieldReason, string(reason),
					log.FieldMethod, r.Method,
					log.FieldPath, r.URL.Path,
					log.FieldClientIP, d.ExtractClientIP(r),
					log.FieldUserAgent, r.Header.Get("User-Agent"))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractClientIP returns the peer address, or the first forwarded address
// when the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil {
		d.invalidIP.Add(1)
		return direct
	}
	if !d.isTrustedProxy(ip) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns a snapshot of the counters.
func (d *Detector) GetMetrics() DetectionMetrics {
	m := DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
		ByReason:           make(map[Reason]int64, len(d.byReason)),
	}
	for r, n := range d.byReason {
		m.ByReason[r] = n.Load()
	}
	return m
}
