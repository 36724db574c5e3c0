package controllers

import (
	"net"
	"net/http"
	"strings"

	"assistant/config"
)

// ClientKeyFunc derives the rate limit and session identity of a request
type ClientKeyFunc func(r *http.Request) string

// RemoteAddrKey identifies clients by the connection's source address
func RemoteAddrKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedForKey uses the first X-Forwarded-For hop, for deployments behind a proxy
func ForwardedForKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return RemoteAddrKey(r)
}

// HeaderKey identifies clients by a token header, falling back to the source address
func HeaderKey(name string) ClientKeyFunc {
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return name + ":" + v
		}
		return RemoteAddrKey(r)
	}
}

// NewClientKeyFunc returns the strategy named by "remote-addr", "forwarded-for" or "header"
func NewClientKeyFunc(strategy, header string) ClientKeyFunc {
	switch strategy {
	case config.ClientKeyForwardedFor:
		return ForwardedForKey
	case config.ClientKeyHeader:
		return HeaderKey(header)
	default:
		return RemoteAddrKey
	}
}
