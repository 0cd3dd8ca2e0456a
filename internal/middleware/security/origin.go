package security

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	applog "fintrack/internal/log"
)

// Headers a cross-site HTML form cannot set without a CORS preflight.
const (
	HeaderHTMXRequest = "HX-Request"
	HeaderCSRFToken   = "X-CSRFToken"
)

// IsCrossSite reports whether r could have been forged by another site.
// Fetch metadata and Origin are checked when the browser sends them, and the
// request must carry a header a plain form post cannot add.
func IsCrossSite(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return true
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || !strings.EqualFold(u.Host, r.Host) {
			return true
		}
	}
	return r.Header.Get(HeaderHTMXRequest) == "" && r.Header.Get(HeaderCSRFToken) == ""
}

// SameOriginMiddleware hands requests matched by applies that look cross-site
// to onReject instead of next.
func (d *Detector) SameOriginMiddleware(logger *applog.Logger, applies func(*http.Request) bool, onReject http.HandlerFunc) func(http.Handler) http.Handler {
	logger = logger.WithComponent(applog.ComponentSecurity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies != nil && !applies(r) {
				next.ServeHTTP(w, r)
				return
			}
			if IsCrossSite(r) {
				atomic.AddInt64(&d.metrics.CrossSiteRequests, 1)
				logger.WarnContext(r.Context(), "Cross-site request rejected",
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path,
					applog.FieldClientIP, d.ExtractClientIP(r),
					"origin", r.Header.Get("Origin"))
				onReject(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
