package util

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller IP for rate-limiting keys. X-Real-IP is
// honored when set by a fronting proxy; otherwise the direct peer wins.
func ClientIP(r *http.Request) string {
	if realIP := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); realIP != nil {
		return realIP.String()
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
