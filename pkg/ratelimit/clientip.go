package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the identifier used when no client address is available.
// All such requests share one bucket.
const UnknownClient = "unknown"

// ClientIP derives the client identifier for r. With trustProxy, the first
// X-Forwarded-For entry wins, then X-Real-IP. Otherwise only the socket
// address is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
			return xr
		}
	}

	if r.RemoteAddr == "" {
		return UnknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		return UnknownClient
	}
	return host
}
