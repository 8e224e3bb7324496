package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

const (
	DefaultTimeout  = 10 * time.Second
	maxErrorBody    = 64 * 1024
	statusSuccess   = "success"
	statusError     = "error"
	analyzePath     = "/analyze-emotion"
	statsPath       = "/emotion-stats"
	requestIDHeader = "X-Request-Id"
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	clock      clock.Clock
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clock:      clk,
	}
}

// Analyze submits one encoded frame. It never retries.
func (c *Client) Analyze(ctx context.Context, frame *CapturedFrame) (*AnalysisResult, error) {
	if frame == nil || frame.Payload == "" {
		return nil, fmt.Errorf("no frame payload provided")
	}

	body, err := json.Marshal(analyzeRequest{Image: frame.Payload})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &InferenceError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFromResponse(resp)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &MalformedResponseError{Reason: "decode body", Err: err}
	}

	return c.toResult(resp.StatusCode, parsed)
}

func (c *Client) toResult(status int, body analyzeResponse) (*AnalysisResult, error) {
	switch strings.ToLower(body.Status) {
	case "", statusSuccess:
	case statusError:
		msg := body.Error
		if msg == "" {
			msg = "inference service reported an error"
		}
		return nil, &InferenceError{Status: status, Message: msg}
	default:
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("unexpected status %q", body.Status)}
	}

	if body.Emotion == "" {
		return nil, &MalformedResponseError{Reason: "missing emotion"}
	}
	category, ok := ParseCategory(body.Emotion)
	if !ok {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("unknown category %q", body.Emotion)}
	}

	if len(body.Details) == 0 {
		return nil, &MalformedResponseError{Reason: "missing details"}
	}
	details := make(Confidences, len(Categories))
	for _, cat := range Categories {
		details[cat] = 0
	}
	for name, value := range body.Details {
		cat, ok := ParseCategory(name)
		if !ok {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("unknown category %q in details", name)}
		}
		if value < 0 || value > 100 {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("confidence %v for %q out of range", value, name)}
		}
		details[cat] = value
	}

	result := &AnalysisResult{
		Timestamp: c.clock.Now(),
		Category:  category,
		Details:   details,
	}

	if body.Insights != nil && body.Insights.ConfidenceScore != nil {
		score := *body.Insights.ConfidenceScore
		if score < 0 || score > 100 {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("confidence_score %v out of range", score)}
		}
		result.Confidence = score
	} else {
		result.Confidence = details.Max()
	}

	if body.Insights != nil {
		result.Readiness = body.Insights.InterviewReadiness
		result.StabilityScore = body.Insights.StabilityScore
		if len(body.Insights.Recommendations) > 0 {
			result.Recommendations = append([]string(nil), body.Insights.Recommendations...)
		}
	}

	return result, nil
}

func errorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Error string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}

	return &InferenceError{Status: resp.StatusCode, Message: msg}
}

// Stats fetches the detector's aggregate statistics. The payload is opaque to us.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &InferenceError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	if !json.Valid(data) {
		return nil, &MalformedResponseError{Reason: "stats body is not json"}
	}

	return json.RawMessage(data), nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statsPath, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
