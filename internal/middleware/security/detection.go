package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// probePatterns are path/query fragments that only show up in scanner
// traffic, never in legitimate API calls.
var probePatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

// probeMethods are HTTP methods no API client has a reason to send.
var probeMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

const maxURLLength = 2048

// DetectionMetrics tracks security detection events.
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector flags scanner-style requests and resolves client IPs behind
// trusted proxies. User agents are deliberately not inspected: this is
// a JSON API and curl-like clients are legitimate callers.
type Detector struct {
	metrics        *DetectionMetrics
	trustedProxies []*net.IPNet
}

// NewDetector creates a detector trusting the loopback and private
// proxy ranges.
func NewDetector() *Detector {
	return &Detector{
		metrics: &DetectionMetrics{},
		trustedProxies: []*net.IPNet{
			mustCIDR("127.0.0.0/8"),
			mustCIDR("10.0.0.0/8"),
			mustCIDR("172.16.0.0/12"),
			mustCIDR("192.168.0.0/16"),
		},
	}
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether the request matches known
// probe patterns.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	// Match against the decoded query so encoding doesn't hide a probe.
	query := r.URL.RawQuery
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}

	suspicious := hasProbePattern(r.URL.Path) ||
		hasProbePattern(query) ||
		isProbeMethod(r.Method) ||
		len(r.URL.String()) > maxURLLength ||
		hasForgedForwardingChain(r)

	if suspicious {
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
	}
	return suspicious
}

func hasProbePattern(s string) bool {
	s = strings.ToLower(s)
	for _, pattern := range probePatterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}

func isProbeMethod(method string) bool {
	for _, m := range probeMethods {
		if method == m {
			return true
		}
	}
	return false
}

// hasForgedForwardingChain flags requests carrying both forwarding
// headers with an implausibly long proxy chain.
func hasForgedForwardingChain(r *http.Request) bool {
	if r.Header.Get("X-Forwarded-For") == "" || r.Header.Get("X-Real-IP") == "" {
		return false
	}
	return strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5
}

// ExtractClientIP extracts the real client IP. Forwarded headers are
// honored only when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil {
		return directIP
	}

	if d.isTrustedProxy(parsed) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// First hop in the chain is the original client
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
		}
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics.
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
	}
}

// AddTrustedProxy adds a trusted proxy network.
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
