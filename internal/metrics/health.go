package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is anything with a liveness round trip (a data-store querier).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	Sources         map[string]bool    `json:"sources"`
	SourceLatencyMs map[string]float64 `json:"source_latency_ms"`
	RedisEnabled    bool               `json:"redis_enabled"`
	RedisConnected  bool               `json:"redis_connected"`
	RedisLatencyMs  float64            `json:"redis_latency_ms"`
	CalendarOK      bool               `json:"calendar_ok"`
	MarketStatus    string             `json:"market_status"`
	LastCheckAt     time.Time          `json:"last_check_at"`
	StartedAt       time.Time          `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		Sources:         make(map[string]bool),
		SourceLatencyMs: make(map[string]float64),
		StartedAt:       time.Now(),
	}
}

func (h *HealthStatus) SetCalendarOK(v bool) {
	h.mu.Lock()
	h.CalendarOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetMarketStatus(s string) {
	h.mu.Lock()
	h.MarketStatus = s
	h.mu.Unlock()
}

// CheckSource pings one data store and records latency + health.
func (h *HealthStatus) CheckSource(ctx context.Context, name string, p Pinger) {
	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.Sources[name] = err == nil
	h.SourceLatencyMs[name] = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckAll runs every dependency probe once.
func (h *HealthStatus) CheckAll(ctx context.Context, rdb *goredis.Client, sources map[string]Pinger) {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if rdb != nil {
		h.CheckRedis(probeCtx, rdb)
	}
	for name, p := range sources {
		h.CheckSource(probeCtx, name, p)
	}
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sources map[string]Pinger, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.CheckAll(ctx, rdb, sources)
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint. Any store down is unhealthy;
// a configured but unreachable cache only degrades.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if h.RedisEnabled && !h.RedisConnected {
		overallStatus = "degraded"
	}
	names := make([]string, 0, len(h.Sources))
	for n := range h.Sources {
		names = append(names, n)
	}
	sort.Strings(names)
	var down []string
	for _, n := range names {
		if !h.Sources[n] {
			down = append(down, n)
		}
	}
	if len(down) > 0 || len(names) == 0 {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string             `json:"status"`
		Uptime          string             `json:"uptime"`
		Sources         map[string]bool    `json:"sources"`
		SourcesDown     []string           `json:"sources_down,omitempty"`
		SourceLatencyMs map[string]float64 `json:"source_latency_ms"`
		RedisEnabled    bool               `json:"redis_enabled"`
		RedisConnected  bool               `json:"redis_connected"`
		RedisLatencyMs  float64            `json:"redis_latency_ms"`
		CalendarOK      bool               `json:"calendar_ok"`
		MarketStatus    string             `json:"market_status,omitempty"`
		LastCheckAt     string             `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Sources:         h.Sources,
		SourcesDown:     down,
		SourceLatencyMs: h.SourceLatencyMs,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		CalendarOK:      h.CalendarOK,
		MarketStatus:    h.MarketStatus,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
