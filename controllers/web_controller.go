package controllers

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"k8s.io/klog/v2"

	"assistant/models"
)

const (
	serviceName    = "assistant"
	serviceVersion = "1.0.0"
)

// RegisterRoutes configures all endpoints on router
func (c *Controller) RegisterRoutes(router *mux.Router) {
	router.Use(RequestIDMiddleware, AccessLogMiddleware)

	router.Handle("/chat", c.RateLimitMiddleware(http.HandlerFunc(c.ChatHandler))).Methods(http.MethodPost)
	router.HandleFunc("/search", c.SearchHandler).Methods(http.MethodPost)
	router.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)

	if c.frontendDir == "" {
		return
	}
	if info, err := os.Stat(c.frontendDir); err != nil || !info.IsDir() {
		klog.Infof("Frontend directory %q not found, static files disabled", c.frontendDir)
		return
	}
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(c.frontendDir))).Methods(http.MethodGet, http.MethodHead)
	klog.Infof("Serving frontend from %s", c.frontendDir)
}

// HealthHandler provides a health check endpoint. It reports degraded when
// any component status is "error".
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	components := models.Metadata{
		"rate_limiter": map[string]interface{}{
			"clients":      c.limiter.Len(),
			"min_interval": c.limiter.MinInterval().String(),
		},
	}
	status := models.StatusHealthy
	for name, reporter := range c.reporters {
		report := reporter.GetStatus()
		if report["status"] == "error" {
			status = models.StatusDegraded
		}
		components[name] = report
	}

	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    status,
		Service:   serviceName,
		Version:   serviceVersion,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Services:  components,
	})
}
