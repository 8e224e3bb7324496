package coach

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/presence-coach/internal/dto"
	"github.com/eleven-am/presence-coach/internal/shared"
	"github.com/eleven-am/presence-coach/internal/vision"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type fakeStatsReader map[string]*StatsSnapshot

func (f fakeStatsReader) Latest(_ context.Context, sessionID string) (*StatsSnapshot, error) {
	if snap, ok := f[sessionID]; ok {
		return snap, nil
	}
	return nil, shared.ErrNotFound
}

type handlerFixture struct {
	handler  *Handler
	manager  *Manager
	source   *fakeSource
	analyzer *fakeAnalyzer
	stats    fakeStatsReader
}

func newHandlerFixture(t *testing.T, steps ...analyzeStep) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		source:   &fakeSource{},
		analyzer: &fakeAnalyzer{steps: steps},
		stats:    fakeStatsReader{},
	}
	f.manager = NewManager(ManagerConfig{
		Source:   f.source,
		Encoder:  vision.NewEncoder(0),
		Analyzer: f.analyzer,
		Logger:   discardLogger(),
	})
	t.Cleanup(func() { _ = f.manager.Close() })
	f.handler = NewHandler(f.manager, f.stats, discardLogger())
	return f
}

func (f *handlerFixture) newSession(t *testing.T) *Session {
	t.Helper()
	s, err := f.manager.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return s
}

func invoke(handler echo.HandlerFunc, method, id string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return rec, handler(c)
}

func expectHTTPError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if httpErr.Code != status {
		t.Errorf("expected status %d, got %d", status, httpErr.Code)
	}
	apiErr, ok := httpErr.Message.(*shared.APIError)
	if !ok {
		t.Fatalf("expected *shared.APIError message, got %T", httpErr.Message)
	}
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s", code, apiErr.Code)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	f := newHandlerFixture(t)
	e := echo.New()
	f.handler.RegisterRoutes(e.Group("/v1"))

	expected := map[string]bool{
		"POST /v1/sessions":              false,
		"GET /v1/sessions":               false,
		"GET /v1/sessions/:id":           false,
		"DELETE /v1/sessions/:id":        false,
		"POST /v1/sessions/:id/device":   false,
		"DELETE /v1/sessions/:id/device": false,
		"POST /v1/sessions/:id/capture":  false,
		"POST /v1/sessions/:id/auto":     false,
		"GET /v1/sessions/:id/insights":  false,
		"GET /v1/sessions/:id/history":   false,
		"GET /v1/sessions/:id/stats":     false,
		"GET /v1/sessions/:id/events":    false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := expected[key]; ok {
			expected[key] = true
		}
	}
	for route, found := range expected {
		if !found {
			t.Errorf("expected route %s to be registered", route)
		}
	}
}

func TestHandler_Create(t *testing.T) {
	f := newHandlerFixture(t)

	rec, err := invoke(f.handler.Create, http.MethodPost, "")
	if err != nil {
		t.Fatalf("Create should not error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}

	var resp dto.CreateSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(resp.SessionID, "ses_") {
		t.Errorf("expected ses_ prefix, got %s", resp.SessionID)
	}
	if resp.Mode != "idle" {
		t.Errorf("expected mode idle, got %s", resp.Mode)
	}
	if !f.manager.Exists(resp.SessionID) {
		t.Error("session should be registered")
	}
}

func TestHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	f.newSession(t)
	f.newSession(t)

	rec, err := invoke(f.handler.List, http.MethodGet, "")
	if err != nil {
		t.Fatalf("List should not error: %v", err)
	}

	var resp dto.SessionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Sessions) != 2 {
		t.Errorf("expected 2 sessions, got total=%d len=%d", resp.Total, len(resp.Sessions))
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	_, err := invoke(f.handler.Get, http.MethodGet, "ses_missing")
	expectHTTPError(t, err, http.StatusNotFound, "session_not_found")
}

func TestHandler_Get(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	rec, err := invoke(f.handler.Get, http.MethodGet, s.ID)
	if err != nil {
		t.Fatalf("Get should not error: %v", err)
	}

	var resp dto.SessionStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.SessionID != s.ID {
		t.Errorf("expected session %s, got %s", s.ID, resp.SessionID)
	}
	if resp.Mode != "idle" || resp.Phase != "idle" {
		t.Errorf("expected idle/idle, got %s/%s", resp.Mode, resp.Phase)
	}
	if resp.DeviceState != "inactive" {
		t.Errorf("expected device inactive, got %s", resp.DeviceState)
	}
	if resp.Interval != "3s" {
		t.Errorf("expected interval 3s, got %s", resp.Interval)
	}
}

func TestHandler_Delete(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	rec, err := invoke(f.handler.Delete, http.MethodDelete, s.ID)
	if err != nil {
		t.Fatalf("Delete should not error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if f.manager.Exists(s.ID) {
		t.Error("session should be removed")
	}

	_, err = invoke(f.handler.Delete, http.MethodDelete, s.ID)
	expectHTTPError(t, err, http.StatusNotFound, "session_not_found")
}

func TestHandler_EnableDevice(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	rec, err := invoke(f.handler.EnableDevice, http.MethodPost, s.ID)
	if err != nil {
		t.Fatalf("EnableDevice should not error: %v", err)
	}

	var resp dto.ModeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Mode != "ready" {
		t.Errorf("expected mode ready, got %s", resp.Mode)
	}
	if resp.DeviceState != "active" {
		t.Errorf("expected device active, got %s", resp.DeviceState)
	}
}

func TestHandler_EnableDevice_Denied(t *testing.T) {
	f := newHandlerFixture(t)
	f.source.err = errors.New("permission denied")
	s := f.newSession(t)

	_, err := invoke(f.handler.EnableDevice, http.MethodPost, s.ID)
	expectHTTPError(t, err, http.StatusUnprocessableEntity, "device_acquisition")
}

func TestHandler_DisableDevice(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)
	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		rec, err := invoke(f.handler.DisableDevice, http.MethodDelete, s.ID)
		if err != nil {
			t.Fatalf("DisableDevice %d should not error: %v", i, err)
		}
		var resp dto.ModeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Mode != "idle" {
			t.Errorf("expected mode idle, got %s", resp.Mode)
		}
	}
	if f.source.closeCount() != 1 {
		t.Errorf("expected camera released once, got %d", f.source.closeCount())
	}
}

func TestHandler_Capture_NotReady(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	_, err := invoke(f.handler.Capture, http.MethodPost, s.ID)
	expectHTTPError(t, err, http.StatusUnprocessableEntity, "not_ready")
}

func TestHandler_Capture(t *testing.T) {
	f := newHandlerFixture(t, analyzeStep{category: vision.CategoryHappy, confidence: 82.5})
	s := f.newSession(t)
	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	rec, err := invoke(f.handler.Capture, http.MethodPost, s.ID)
	if err != nil {
		t.Fatalf("Capture should not error: %v", err)
	}

	var resp dto.CaptureResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.DominantCategory != "happy" {
		t.Errorf("expected happy, got %s", resp.Result.DominantCategory)
	}
	if resp.Result.Confidence != 82.5 {
		t.Errorf("expected confidence 82.5, got %f", resp.Result.Confidence)
	}
	if resp.Result.Details["happy"] != 82.5 {
		t.Errorf("expected happy detail 82.5, got %v", resp.Result.Details)
	}
	if resp.Insights != nil {
		t.Error("expected no insights after one result")
	}
}

func TestHandler_Capture_InsightsAfterWarmUp(t *testing.T) {
	f := newHandlerFixture(t, analyzeStep{category: vision.CategoryNeutral, confidence: 70})
	s := f.newSession(t)
	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	var resp dto.CaptureResponse
	for i := 0; i < 3; i++ {
		rec, err := invoke(f.handler.Capture, http.MethodPost, s.ID)
		if err != nil {
			t.Fatalf("capture %d should not error: %v", i, err)
		}
		resp = dto.CaptureResponse{}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}

	if resp.Insights == nil {
		t.Fatal("expected insights after three results")
	}
	if resp.Insights.WindowSize != 3 {
		t.Errorf("expected window of 3, got %d", resp.Insights.WindowSize)
	}
	if resp.Insights.DominantCategory != "neutral" {
		t.Errorf("expected neutral, got %s", resp.Insights.DominantCategory)
	}
}

func TestHandler_Capture_InferenceError(t *testing.T) {
	f := newHandlerFixture(t, analyzeStep{err: &vision.InferenceError{Status: 503, Message: "model unavailable"}})
	s := f.newSession(t)
	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	_, err := invoke(f.handler.Capture, http.MethodPost, s.ID)
	expectHTTPError(t, err, http.StatusBadGateway, "inference")

	httpErr := err.(*echo.HTTPError)
	if msg := httpErr.Message.(*shared.APIError).Message; msg != "model unavailable" {
		t.Errorf("expected message 'model unavailable', got %q", msg)
	}
}

func TestHandler_Capture_Malformed(t *testing.T) {
	f := newHandlerFixture(t, analyzeStep{err: &vision.MalformedResponseError{Reason: "unknown category"}})
	s := f.newSession(t)
	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	_, err := invoke(f.handler.Capture, http.MethodPost, s.ID)
	expectHTTPError(t, err, http.StatusBadGateway, "malformed_response")
}

func TestHandler_Capture_InFlight(t *testing.T) {
	f := newHandlerFixture(t)
	f.analyzer.gate = make(chan struct{})
	s := f.newSession(t)
	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Scheduler.TriggerOnce(context.Background())
		done <- err
	}()
	waitFor(t, "cycle to start", func() bool { return f.analyzer.callCount() == 1 })

	_, err := invoke(f.handler.Capture, http.MethodPost, s.ID)
	expectHTTPError(t, err, http.StatusConflict, "cycle_in_flight")

	f.analyzer.gate <- struct{}{}
	if err := <-done; err != nil {
		t.Errorf("in-flight cycle should succeed: %v", err)
	}
}

func TestHandler_ToggleAutoCapture(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	_, err := invoke(f.handler.ToggleAutoCapture, http.MethodPost, s.ID)
	expectHTTPError(t, err, http.StatusUnprocessableEntity, "device_inactive")

	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	rec, err := invoke(f.handler.ToggleAutoCapture, http.MethodPost, s.ID)
	if err != nil {
		t.Fatalf("ToggleAutoCapture should not error: %v", err)
	}
	var resp dto.ModeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Mode != "auto_capturing" {
		t.Errorf("expected auto_capturing, got %s", resp.Mode)
	}
	if resp.Interval != "3s" {
		t.Errorf("expected interval 3s, got %s", resp.Interval)
	}
}

func TestHandler_Insights(t *testing.T) {
	f := newHandlerFixture(t,
		analyzeStep{category: vision.CategoryNeutral, confidence: 70},
		analyzeStep{category: vision.CategoryNeutral, confidence: 75},
		analyzeStep{category: vision.CategoryHappy, confidence: 80},
	)
	s := f.newSession(t)
	ctx := context.Background()
	if err := s.Scheduler.EnableDevice(ctx); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}

	rec, err := invoke(f.handler.Insights, http.MethodGet, s.ID)
	if err != nil {
		t.Fatalf("Insights should not error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204 before warm-up, got %d", rec.Code)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.Scheduler.TriggerOnce(ctx); err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
	}

	rec, err = invoke(f.handler.Insights, http.MethodGet, s.ID)
	if err != nil {
		t.Fatalf("Insights should not error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp dto.InsightsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.DominantCategory != "neutral" {
		t.Errorf("expected neutral, got %s", resp.DominantCategory)
	}
	if resp.AverageConfidence != 75 {
		t.Errorf("expected 75, got %d", resp.AverageConfidence)
	}
	if resp.Stability != "good" {
		t.Errorf("expected good, got %s", resp.Stability)
	}
}

func TestHandler_History(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)
	ctx := context.Background()
	if err := s.Scheduler.EnableDevice(ctx); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}
	for i := 0; i < 9; i++ {
		if _, err := s.Scheduler.TriggerOnce(ctx); err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
	}

	rec, err := invoke(f.handler.History, http.MethodGet, s.ID)
	if err != nil {
		t.Fatalf("History should not error: %v", err)
	}

	var resp dto.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Size != 9 {
		t.Errorf("expected size 9, got %d", resp.Size)
	}
	if resp.Capacity != 10 {
		t.Errorf("expected capacity 10, got %d", resp.Capacity)
	}
	if len(resp.Entries) != 8 {
		t.Errorf("expected 8 entries, got %d", len(resp.Entries))
	}
}

func TestHandler_Stats(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	_, err := invoke(f.handler.Stats, http.MethodGet, s.ID)
	expectHTTPError(t, err, http.StatusNotFound, "stats_not_found")

	f.stats[s.ID] = &StatsSnapshot{
		RefreshedAt: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Payload:     json.RawMessage(`{"total_analyses":5}`),
	}

	rec, err := invoke(f.handler.Stats, http.MethodGet, s.ID)
	if err != nil {
		t.Fatalf("Stats should not error: %v", err)
	}
	var resp dto.StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.RefreshedAt != "2025-01-15T10:30:00Z" {
		t.Errorf("unexpected refreshed_at %s", resp.RefreshedAt)
	}
	if string(resp.Payload) != `{"total_analyses":5}` {
		t.Errorf("unexpected payload %s", resp.Payload)
	}
}

func TestHandler_Events(t *testing.T) {
	f := newHandlerFixture(t)
	s := f.newSession(t)

	e := echo.New()
	f.handler.RegisterRoutes(e.Group(""))
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + server.URL[4:] + "/sessions/" + s.ID + "/events"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer ws.Close()

	readEvent := func() Event {
		t.Helper()
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev Event
		if err := ws.ReadJSON(&ev); err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		return ev
	}

	first := readEvent()
	if first.Type != EventMode || first.Mode != ModeIdle {
		t.Errorf("expected initial idle mode event, got %+v", first)
	}

	waitFor(t, "viewer to subscribe", func() bool { return s.Events.Subscribers() == 1 })

	if err := s.Scheduler.EnableDevice(context.Background()); err != nil {
		t.Fatalf("EnableDevice failed: %v", err)
	}
	ev := readEvent()
	if ev.Type != EventMode || ev.Mode != ModeReady {
		t.Errorf("expected ready mode event, got %+v", ev)
	}

	if _, err := s.Scheduler.TriggerOnce(context.Background()); err != nil {
		t.Fatalf("TriggerOnce failed: %v", err)
	}
	ev = readEvent()
	if ev.Type != EventResult || ev.Result == nil {
		t.Errorf("expected result event, got %+v", ev)
	}

	if err := f.manager.Remove(context.Background(), s.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("expected normal closure, got %v", err)
			}
			break
		}
	}
}

func TestHandler_Events_UnknownSession(t *testing.T) {
	f := newHandlerFixture(t)

	_, err := invoke(f.handler.Events, http.MethodGet, "ses_missing")
	expectHTTPError(t, err, http.StatusNotFound, "session_not_found")
}
