package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"assistant/models"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware assigns a request ID unless the caller sent one
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLogMiddleware logs one line per request
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		klog.Infof("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond), r.Header.Get(RequestIDHeader))
	})
}

// RateLimitMiddleware rejects clients that exceed the configured rate with 429
func (c *Controller) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := c.clientKey(r)
		if !c.limiter.Allow(key, c.now()) {
			klog.V(1).Infof("Throttled client %s", key)
			writeJSON(w, http.StatusTooManyRequests, models.ChatResponse{Response: MsgTooFast})
			return
		}
		next.ServeHTTP(w, r)
	})
}
