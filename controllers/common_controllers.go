package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"assistant/services"
)

// StatusReporter is implemented by every service listed on /health
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// Controller handles the HTTP surface of the assistant
type Controller struct {
	generator   services.Generator
	searcher    services.Searcher
	limiter     *services.RateLimiter
	clientKey   ClientKeyFunc
	reporters   map[string]StatusReporter
	frontendDir string
	startTime   time.Time
	now         func() time.Time
}

// Options configures a Controller
type Options struct {
	Generator   services.Generator
	Searcher    services.Searcher
	Limiter     *services.RateLimiter
	ClientKey   ClientKeyFunc
	Reporters   map[string]StatusReporter
	FrontendDir string
}

// NewController creates a new controller instance
func NewController(opts Options) *Controller {
	if opts.Limiter == nil {
		opts.Limiter = services.NewRateLimiter(services.DefaultRatePerMinute)
	}
	if opts.ClientKey == nil {
		opts.ClientKey = RemoteAddrKey
	}
	return &Controller{
		generator:   opts.Generator,
		searcher:    opts.Searcher,
		limiter:     opts.Limiter,
		clientKey:   opts.ClientKey,
		reporters:   opts.Reporters,
		frontendDir: opts.FrontendDir,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("Error encoding response: %v", err)
	}
}
