package dto

import "encoding/json"

type CreateSessionResponse struct {
	SessionID string `json:"session_id" example:"ses_4f1c2a9b7e8d4c3a9f0b1e2d3c4b5a69"`
	Mode      string `json:"mode" example:"idle"`
}

type NoticeResponse struct {
	Kind    string `json:"kind" example:"inference"`
	Message string `json:"message" example:"model unavailable"`
	At      string `json:"at" example:"2025-01-15T10:30:00Z"`
}

type SessionStatusResponse struct {
	SessionID    string          `json:"session_id" example:"ses_4f1c2a9b7e8d4c3a9f0b1e2d3c4b5a69"`
	Mode         string          `json:"mode" example:"auto_capturing"`
	Phase        string          `json:"phase" example:"awaiting_response"`
	DeviceState  string          `json:"device_state" example:"active"`
	DeviceError  string          `json:"device_error,omitempty" example:"unable to access camera / permission denied"`
	Interval     string          `json:"interval" example:"3s"`
	HistorySize  int             `json:"history_size" example:"7"`
	Successes    int             `json:"successes" example:"12"`
	Failures     int             `json:"failures" example:"1"`
	TicksSkipped int             `json:"ticks_skipped" example:"2"`
	LastNotice   *NoticeResponse `json:"last_notice,omitempty"`
	LastActivity string          `json:"last_activity" example:"2025-01-15T10:30:00Z"`
}

type SessionSummary struct {
	SessionID   string `json:"session_id" example:"ses_4f1c2a9b7e8d4c3a9f0b1e2d3c4b5a69"`
	Mode        string `json:"mode" example:"ready"`
	DeviceState string `json:"device_state" example:"active"`
	HistorySize int    `json:"history_size" example:"3"`
	CreatedAt   string `json:"created_at" example:"2025-01-15T10:00:00Z"`
}

type SessionListResponse struct {
	Total    int              `json:"total" example:"1"`
	Sessions []SessionSummary `json:"sessions"`
}

type ModeResponse struct {
	SessionID   string `json:"session_id" example:"ses_4f1c2a9b7e8d4c3a9f0b1e2d3c4b5a69"`
	Mode        string `json:"mode" example:"ready"`
	DeviceState string `json:"device_state" example:"active"`
	Interval    string `json:"interval,omitempty" example:"3s"`
}

type AnalysisResultResponse struct {
	Timestamp          string             `json:"timestamp" example:"2025-01-15T10:30:00Z"`
	DominantCategory   string             `json:"dominant_category" example:"neutral"`
	Confidence         float64            `json:"confidence" example:"74.5"`
	Details            map[string]float64 `json:"details"`
	Recommendations    []string           `json:"recommendations,omitempty"`
	InterviewReadiness string             `json:"interview_readiness,omitempty" example:"ready"`
	StabilityScore     *float64           `json:"stability_score,omitempty" example:"0.82"`
}

type InsightsResponse struct {
	DominantCategory  string `json:"dominant_category" example:"neutral"`
	AverageConfidence int    `json:"average_confidence" example:"75"`
	Stability         string `json:"stability" example:"good"`
	Recommendation    string `json:"recommendation" example:"You look composed and engaged. Keep this presence through your answers."`
	WindowSize        int    `json:"window_size" example:"5"`
}

type CaptureResponse struct {
	Result   AnalysisResultResponse `json:"result"`
	Insights *InsightsResponse      `json:"insights,omitempty"`
}

type HistoryResponse struct {
	Size     int                      `json:"size" example:"8"`
	Capacity int                      `json:"capacity" example:"10"`
	Entries  []AnalysisResultResponse `json:"entries"`
}

type StatsResponse struct {
	SessionID   string          `json:"session_id" example:"ses_4f1c2a9b7e8d4c3a9f0b1e2d3c4b5a69"`
	RefreshedAt string          `json:"refreshed_at" example:"2025-01-15T10:30:00Z"`
	Payload     json.RawMessage `json:"payload" swaggertype:"object"`
}
