package security

import (
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"

	"budget/internal/log"
)

const (
	maxURLLength = 2048
	// maxForwardHops bounds X-Forwarded-For; longer chains are usually forged.
	maxForwardHops = 6
)

var (
	probePatterns = []string{
		"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", "etc/passwd", "cmd.exe",
		"eval(", "javascript:", "<script", "union select",
	}
	// Only scanners: API clients legitimately use curl and scripting libraries.
	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab"}
	// blockedMethods are answered with 405 before routing.
	blockedMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

	privateNetworks = []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("::1/128"),
	}
)

type DetectionMetrics struct {
	SuspiciousRequests int64
	InvalidIPAttempts  int64
}

// Detector resolves client addresses and flags probing requests.
type Detector struct {
	trusted    []netip.Prefix
	suspicious atomic.Int64
	invalidIP  atomic.Int64
}

// NewDetector trusts loopback, private networks and extra as reverse proxies.
func NewDetector(extra ...netip.Prefix) *Detector {
	return &Detector{trusted: append(slices.Clone(privateNetworks), extra...)}
}

// DetectSuspiciousRequest reports whether r looks like a probe and counts it.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	query, err := url.QueryUnescape(r.URL.RawQuery)
	if err != nil {
		query = r.URL.RawQuery
	}

	flagged := slices.Contains(blockedMethods, r.Method) ||
		matchesAny(r.URL.Path, probePatterns) ||
		matchesAny(query, probePatterns) ||
		matchesAny(r.UserAgent(), scannerAgents) ||
		len(r.URL.String()) > maxURLLength ||
		strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxForwardHops

	if flagged {
		d.suspicious.Add(1)
	}
	return flagged
}

func matchesAny(s string, patterns []string) bool {
	s = strings.ToLower(s)
	return slices.ContainsFunc(patterns, func(p string) bool { return strings.Contains(s, p) })
}

// ExtractClientIP returns the caller's address. X-Forwarded-For and
// X-Real-IP are only honoured when the direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	if !d.trustedPeer(peer) {
		return peer
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if addr, err := netip.ParseAddr(candidate); err == nil {
			return addr.String()
		}
		d.invalidIP.Add(1)
	}
	return peer
}

func (d *Detector) trustedPeer(peer string) bool {
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return slices.ContainsFunc(d.trusted, func(p netip.Prefix) bool { return p.Contains(addr) })
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: d.suspicious.Load(),
		InvalidIPAttempts:  d.invalidIP.Load(),
	}
}

// Middleware logs suspicious requests and rejects blocked methods outright.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Suspicious request detected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, d.ExtractClientIP(r),
				log.FieldUserAgent, r.UserAgent())
			if slices.Contains(blockedMethods, r.Method) {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
