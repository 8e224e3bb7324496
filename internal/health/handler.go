package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/coach"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// InferenceProbe reports whether the detector endpoint answers.
type InferenceProbe interface {
	IsAvailable(ctx context.Context) bool
}

// SessionLister exposes the live coaching sessions.
type SessionLister interface {
	List() []coach.SessionInfo
}

// PublisherCounter counts browser cameras currently published over WebRTC.
type PublisherCounter interface {
	Count() int
}

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type SessionStats struct {
	Active           int `json:"active"`
	AutoCapturing    int `json:"auto_capturing"`
	CameraPublishers int `json:"camera_publishers"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Sessions SessionStats `json:"sessions"`
	Requests RequestStats `json:"requests"`
	Runtime  RuntimeStats `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type SessionDetail struct {
	SessionID   string `json:"session_id"`
	Mode        string `json:"mode"`
	DeviceState string `json:"device_state"`
	HistorySize int    `json:"history_size"`
	AgeSeconds  int64  `json:"age_seconds"`
}

type SessionsResponse struct {
	Total    int             `json:"total"`
	Sessions []SessionDetail `json:"sessions"`
}

type Handler struct {
	redis      *redis.Client
	inference  InferenceProbe
	sessions   SessionLister
	publishers PublisherCounter
	version    string
	startTime  time.Time

	totalRequests     uint64
	activeConnections int64
}

func NewHandler(
	redis *redis.Client,
	inference InferenceProbe,
	sessions SessionLister,
	publishers PublisherCounter,
	version string,
) *Handler {
	return &Handler{
		redis:      redis,
		inference:  inference,
		sessions:   sessions,
		publishers: publishers,
		version:    version,
		startTime:  time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
	e.GET("/health/sessions", h.Sessions)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementConnections() {
	atomic.AddInt64(&h.activeConnections, 1)
}

func (h *Handler) DecrementConnections() {
	atomic.AddInt64(&h.activeConnections, -1)
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// check is one readiness probe. A failing critical check makes the service
// unhealthy; any other failure only degrades it.
type check struct {
	name     string
	critical bool
	run      func(context.Context) (Status, string)
}

func (h *Handler) checks() []check {
	return []check{
		{name: "redis", critical: true, run: h.checkRedis},
		{name: "inference", run: h.checkInference},
		{name: "cameras", run: h.checkCameras},
	}
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	checks := h.checks()
	components := make(map[string]ComponentStatus, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	overall := StatusHealthy
	for _, chk := range checks {
		wg.Add(1)
		go func(chk check) {
			defer wg.Done()
			start := time.Now()
			status, msg := chk.run(ctx)

			mu.Lock()
			defer mu.Unlock()
			components[chk.name] = ComponentStatus{
				Status:    status,
				LatencyMs: time.Since(start).Milliseconds(),
				Error:     msg,
			}
			overall = worsen(overall, status, chk.critical)
		}(chk)
	}
	wg.Wait()

	resp := HealthResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Sessions: h.sessionStats(),
			Requests: RequestStats{
				TotalRequests:     atomic.LoadUint64(&h.totalRequests),
				ActiveConnections: atomic.LoadInt64(&h.activeConnections),
			},
			Runtime: readRuntimeStats(),
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overall == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

func worsen(current, status Status, critical bool) Status {
	switch {
	case current == StatusUnhealthy || status == StatusHealthy:
		return current
	case critical && status == StatusUnhealthy:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}

func readRuntimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		Goroutines:         runtime.NumGoroutine(),
		MemoryAllocMB:      mem.Alloc / 1024 / 1024,
		MemoryTotalAllocMB: mem.TotalAlloc / 1024 / 1024,
		MemorySysMB:        mem.Sys / 1024 / 1024,
		NumGC:              mem.NumGC,
	}
}

func (h *Handler) Sessions(c echo.Context) error {
	if h.sessions == nil {
		return c.JSON(http.StatusOK, SessionsResponse{Sessions: []SessionDetail{}})
	}

	infos := h.sessions.List()
	now := time.Now()

	details := make([]SessionDetail, len(infos))
	for i, s := range infos {
		details[i] = SessionDetail{
			SessionID:   s.SessionID,
			Mode:        string(s.Mode),
			DeviceState: string(s.DeviceState),
			HistorySize: s.HistorySize,
			AgeSeconds:  int64(now.Sub(s.CreatedAt).Seconds()),
		}
	}

	return c.JSON(http.StatusOK, SessionsResponse{
		Total:    len(details),
		Sessions: details,
	})
}

func (h *Handler) sessionStats() SessionStats {
	var stats SessionStats
	if h.sessions != nil {
		infos := h.sessions.List()
		stats.Active = len(infos)
		for _, s := range infos {
			if s.Mode == coach.ModeAutoCapturing {
				stats.AutoCapturing++
			}
		}
	}
	if h.publishers != nil {
		stats.CameraPublishers = h.publishers.Count()
	}
	return stats
}

func (h *Handler) checkRedis(ctx context.Context) (Status, string) {
	if h.redis == nil {
		return StatusUnhealthy, "redis not configured"
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return StatusUnhealthy, "ping failed"
	}
	return StatusHealthy, ""
}

func (h *Handler) checkInference(ctx context.Context) (Status, string) {
	if h.inference == nil {
		return StatusUnhealthy, "inference client not configured"
	}
	if !h.inference.IsAvailable(ctx) {
		return StatusUnhealthy, "endpoint unreachable"
	}
	return StatusHealthy, ""
}

// checkCameras degrades when a session's camera could not be acquired.
func (h *Handler) checkCameras(_ context.Context) (Status, string) {
	if h.sessions == nil {
		return StatusHealthy, ""
	}
	failed := 0
	for _, s := range h.sessions.List() {
		if s.DeviceState == camera.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		return StatusDegraded, fmt.Sprintf("%d session(s) could not acquire a camera", failed)
	}
	return StatusHealthy, ""
}
