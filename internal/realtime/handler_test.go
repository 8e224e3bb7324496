package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"
)

type fakeSessions map[string]bool

func (f fakeSessions) Exists(id string) bool {
	return f[id]
}

func newTestHandler(t *testing.T, cfg Config) (*Handler, *Manager) {
	t.Helper()
	mgr, err := NewManager(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return NewHandler(mgr, fakeSessions{"ses_1": true}, testLogger()), mgr
}

func TestHandler_maxSDPSize_Default(t *testing.T) {
	h, _ := newTestHandler(t, Config{})
	if h.maxSDPSize() != 64*1024 {
		t.Errorf("expected default max SDP size 64KB, got %d", h.maxSDPSize())
	}
}

func TestHandler_maxSDPSize_Custom(t *testing.T) {
	h, _ := newTestHandler(t, Config{MaxSDPSize: 128 * 1024})
	if h.maxSDPSize() != 128*1024 {
		t.Errorf("expected custom max SDP size 128KB, got %d", h.maxSDPSize())
	}
}

func TestHandler_HandleICEServers(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, Config{
		ICEServers: []ICEServerConfig{
			{URLs: []string{"stun:stun.example.com"}},
			{URLs: []string{"turn:turn.example.com"}, Username: "user", Credential: "pass"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/ice-servers", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleICEServers(c); err != nil {
		t.Fatalf("HandleICEServers should not error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp ICEServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.ICEServers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(resp.ICEServers))
	}
	if resp.ICEServers[1].Username != "user" {
		t.Errorf("expected username 'user', got %s", resp.ICEServers[1].Username)
	}
}

func TestHandler_HandleOffer_UnknownSession(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sdp":"v=0"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_unknown")

	err := h.HandleOffer(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", he.Code)
	}
}

func TestHandler_HandleOffer_MissingSDP(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_1")

	err := h.HandleOffer(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", he.Code)
	}
}

func TestHandler_HandleOffer_InvalidSDP(t *testing.T) {
	e := echo.New()
	h, mgr := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not an sdp"))
	req.Header.Set("Content-Type", "application/sdp")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_1")

	err := h.HandleOffer(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", he.Code)
	}
	if mgr.Count() != 0 {
		t.Errorf("expected no publisher after failed offer, got %d", mgr.Count())
	}
}

func TestHandler_HandleOffer_UnsupportedContentType(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("sdp"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_1")

	err := h.HandleOffer(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", he.Code)
	}
}

func TestHandler_HandleICECandidate_NotPublished(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"candidate":"candidate:1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_1")

	err := h.HandleICECandidate(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", he.Code)
	}
}

func TestHandler_HandleICEStream_NotPublished(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_1")

	err := h.HandleICEStream(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", he.Code)
	}
}

func TestHandler_HandleICEStream_EndsWhenPublisherCloses(t *testing.T) {
	e := echo.New()
	h, mgr := newTestHandler(t, Config{})
	pub := newTestPublisher("ses_1")
	mgr.Register(pub)
	pub.SendICE(webrtc.ICECandidateInit{Candidate: "candidate:1"})
	_ = pub.Close()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("ses_1")

	if err := h.HandleICEStream(c); err != nil {
		t.Fatalf("HandleICEStream should not error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event stream content type, got %s", ct)
	}
}
