package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// newCheckOrigin builds the upgrader's origin policy. Requests without an
// Origin header (non-browser clients) always pass. With no allowed origins
// configured every origin passes. In development localhost is always allowed.
func newCheckOrigin(allowed []string, isDevelopment bool) func(r *http.Request) bool {
	origins := make(map[string]struct{}, len(allowed))
	for _, raw := range allowed {
		if o := extractOrigin(raw); o != "" {
			origins[o] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(origins) == 0 {
			return true
		}
		if _, ok := origins[strings.ToLower(origin)]; ok {
			return true
		}
		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.WarnContext(r.Context(), "WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
