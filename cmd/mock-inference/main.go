// Command mock-inference serves a deterministic stand-in for the expression
// detector so the coach can be driven without a model.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
)

var rotation = []string{"neutral", "happy", "neutral", "surprise", "neutral", "fear", "happy", "sad"}

var labels = []string{"happy", "sad", "angry", "surprise", "fear", "disgust", "neutral"}

type analyzeRequest struct {
	Image string `json:"image"`
}

type detector struct {
	mu      sync.Mutex
	calls   int
	counts  map[string]int
	started time.Time
}

func newDetector() *detector {
	return &detector{counts: make(map[string]int), started: time.Now()}
}

// next returns the label for the following frame along with its confidence map.
func (d *detector) next() (string, map[string]float64, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	label := rotation[d.calls%len(rotation)]
	d.calls++
	d.counts[label]++

	details := make(map[string]float64, len(labels))
	rest := 30.0 / float64(len(labels)-1)
	for _, l := range labels {
		details[l] = rest
	}
	details[label] = 70
	return label, details, d.calls
}

func (d *detector) analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil || req.Image == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "error": "missing image"})
	}
	payload := req.Image
	if i := strings.Index(payload, ","); strings.HasPrefix(payload, "data:") && i >= 0 {
		payload = payload[i+1:]
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "error": "image is not base64"})
	}

	label, details, n := d.next()
	score := details[label]
	stability := 0.5 + float64(n%5)/10

	readiness := "ready"
	if label != "neutral" && label != "happy" {
		readiness = "needs_work"
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "success",
		"emotion": label,
		"details": details,
		"insights": map[string]any{
			"confidence_score":    score,
			"interview_readiness": readiness,
			"stability_score":     stability,
			"recommendations":     []string{"Keep eye contact with the camera"},
		},
	})
}

func (d *detector) stats(c echo.Context) error {
	d.mu.Lock()
	counts := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		counts[k] = v
	}
	total := d.calls
	d.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"total_analyses": total,
		"distribution":   counts,
		"uptime_seconds": int(time.Since(d.started).Seconds()),
	})
}

func newServer(d *detector) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST("/analyze-emotion", d.analyze)
	e.GET("/emotion-stats", d.stats)
	return e
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	addr := os.Getenv("MOCK_INFERENCE_ADDR")
	if addr == "" {
		addr = ":5001"
	}

	e := newServer(newDetector())

	go func() {
		logger.Info("mock inference listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
