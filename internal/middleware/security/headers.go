package security

import (
	"net/http"
	"strconv"
	"time"
)

// HeadersConfig lists the response headers set on every API response.
// Empty values are skipped.
type HeadersConfig struct {
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeOptions    string
	ReferrerPolicy        string
	ResourcePolicy        string
	CacheControl          string

	// HSTS is only sent over TLS. Zero disables it.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
}

// DefaultHeadersConfig returns defaults for a JSON API: nothing may be
// framed, embedded or cached by intermediaries.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		FrameOptions:          "DENY",
		ContentTypeOptions:    "nosniff",
		ReferrerPolicy:        "no-referrer",
		ResourcePolicy:        "same-origin",
		CacheControl:          "no-store",
		HSTSMaxAge:            365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
	}
}

// HeadersMiddleware stamps a fixed header set on responses.
type HeadersMiddleware struct {
	static [][2]string
	hsts   string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, kv := range [][2]string{
		{"Content-Security-Policy", config.ContentSecurityPolicy},
		{"X-Frame-Options", config.FrameOptions},
		{"X-Content-Type-Options", config.ContentTypeOptions},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Cross-Origin-Resource-Policy", config.ResourcePolicy},
		{"Cache-Control", config.CacheControl},
	} {
		if kv[1] != "" {
			h.static = append(h.static, kv)
		}
	}
	if config.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(int(config.HSTSMaxAge/time.Second))
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		for _, kv := range h.static {
			header.Set(kv[0], kv[1])
		}
		if r.TLS != nil && h.hsts != "" {
			header.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
