package vision

import (
	"context"
	"image"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/presence-coach/internal/camera"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	Clock   clock.Clock
}

// FrameSource is the live video handle a device session exposes.
type FrameSource interface {
	State() camera.State
	Frame(ctx context.Context) (image.Image, error)
}

type CapturedFrame struct {
	Width   int
	Height  int
	Payload string
}

type AnalysisResult struct {
	Timestamp       time.Time   `json:"timestamp"`
	Category        Category    `json:"dominant_category"`
	Confidence      float64     `json:"confidence"`
	Details         Confidences `json:"details"`
	Recommendations []string    `json:"recommendations,omitempty"`
	Readiness       string      `json:"interview_readiness,omitempty"`
	StabilityScore  *float64    `json:"stability_score,omitempty"`
}

type analyzeRequest struct {
	Image string `json:"image"`
}

type analyzeResponse struct {
	Status   string             `json:"status"`
	Emotion  string             `json:"emotion"`
	Details  map[string]float64 `json:"details"`
	Insights *analyzeInsights   `json:"insights"`
	Error    string             `json:"error"`
}

type analyzeInsights struct {
	ConfidenceScore    *float64 `json:"confidence_score"`
	InterviewReadiness string   `json:"interview_readiness"`
	StabilityScore     *float64 `json:"stability_score"`
	Recommendations    []string `json:"recommendations"`
}
