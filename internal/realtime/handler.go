package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pion/webrtc/v4"
)

// SessionChecker reports whether a coaching session exists.
type SessionChecker interface {
	Exists(id string) bool
}

type Handler struct {
	manager  *Manager
	sessions SessionChecker
	log      *slog.Logger
}

func NewHandler(mgr *Manager, sessions SessionChecker, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		manager:  mgr,
		sessions: sessions,
		log:      log.With("component", "rtc-handler"),
	}
}

type OfferRequest struct {
	SDP string `json:"sdp"`
}

type OfferResponse struct {
	SessionID  string      `json:"session_id"`
	SDP        string      `json:"sdp"`
	ICEServers []ICEServer `json:"ice_servers,omitempty"`
}

type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type ICECandidateRequest struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type ICEServersResponse struct {
	ICEServers []ICEServer `json:"ice_servers"`
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions/:id/camera/offer", h.HandleOffer)
	g.POST("/sessions/:id/camera/ice", h.HandleICECandidate)
	g.GET("/sessions/:id/camera/ice", h.HandleICEStream)
	g.GET("/ice-servers", h.HandleICEServers)
}

// HandleOffer godoc
// @Summary      Publish the browser camera
// @Description  Accepts an SDP offer carrying one video track and answers it. The decoded frames feed the session's device.
// @Tags         camera
// @Accept       json
// @Produce      json
// @Param        id  path  string  true  "Session ID"
// @Param        request  body  OfferRequest  true  "SDP offer"
// @Success      200  {object}  OfferResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /sessions/{id}/camera/offer [post]
func (h *Handler) HandleOffer(c echo.Context) error {
	sessionID := c.Param("id")
	if sessionID == "" || !h.sessions.Exists(sessionID) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	sdp, err := h.extractSDP(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if sdp == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing sdp")
	}

	peer, err := h.manager.NewPeer()
	if err != nil {
		h.log.Error("failed to create peer", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create peer connection")
	}

	if err := peer.SetOffer(sdp); err != nil {
		_ = peer.Close()
		h.log.Error("failed to set offer", "session_id", sessionID, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to process offer")
	}

	sink := h.manager.NewFrameSink(sessionID)
	pub := NewPublisher(sessionID, peer, sink, h.manager.Config().BufferSizes.ICECandidates, h.log)

	peer.OnVideo(sink.HandleRTPPacket)
	peer.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		pub.SendICE(cand.ToJSON())
	})
	peer.OnConnected(func() {
		h.log.Info("camera connected", "session_id", sessionID)
	})
	peer.OnFailed(func() {
		h.log.Info("camera disconnected", "session_id", sessionID)
		h.manager.Detach(pub)
	})

	answer, err := peer.CreateAnswer()
	if err != nil {
		_ = pub.Close()
		h.log.Error("failed to create answer", "session_id", sessionID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create answer")
	}

	h.manager.Register(pub)

	return c.JSON(http.StatusOK, OfferResponse{
		SessionID:  sessionID,
		SDP:        answer,
		ICEServers: h.iceServersResponse(),
	})
}

// HandleICECandidate godoc
// @Summary      Add a trickled ICE candidate
// @Tags         camera
// @Accept       json
// @Param        id  path  string  true  "Session ID"
// @Param        request  body  ICECandidateRequest  true  "ICE candidate"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /sessions/{id}/camera/ice [post]
func (h *Handler) HandleICECandidate(c echo.Context) error {
	pub, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "camera not published")
	}

	var req ICECandidateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	candidate := webrtc.ICECandidateInit{
		Candidate:     req.Candidate,
		SDPMid:        req.SDPMid,
		SDPMLineIndex: req.SDPMLineIndex,
	}

	if err := pub.Peer().AddICECandidate(candidate); err != nil {
		h.log.Error("failed to add ICE candidate", "session_id", pub.SessionID, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "failed to add candidate")
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleICEStream godoc
// @Summary      Stream server ICE candidates
// @Description  Server-sent events, one ice-candidate event per local candidate.
// @Tags         camera
// @Produce      text/event-stream
// @Param        id  path  string  true  "Session ID"
// @Success      200
// @Failure      404  {object}  map[string]string
// @Router       /sessions/{id}/camera/ice [get]
func (h *Handler) HandleICEStream(c echo.Context) error {
	pub, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "camera not published")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	ctx := c.Request().Context()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pub.Done():
			return nil
		case candidate := <-pub.ICECandidates():
			data, err := json.Marshal(candidate)
			if err != nil {
				continue
			}

			fmt.Fprintf(c.Response(), "event: ice-candidate\ndata: %s\n\n", data)
			c.Response().Flush()
		}
	}
}

// HandleICEServers godoc
// @Summary      List ICE servers
// @Tags         camera
// @Produce      json
// @Success      200  {object}  ICEServersResponse
// @Router       /ice-servers [get]
func (h *Handler) HandleICEServers(c echo.Context) error {
	return c.JSON(http.StatusOK, ICEServersResponse{ICEServers: h.iceServersResponse()})
}

func (h *Handler) maxSDPSize() int64 {
	maxSize := h.manager.Config().MaxSDPSize
	if maxSize <= 0 {
		maxSize = 64 * 1024
	}
	return int64(maxSize)
}

func (h *Handler) iceServersResponse() []ICEServer {
	cfgServers := h.manager.ICEServers()
	servers := make([]ICEServer, 0, len(cfgServers))

	for _, s := range cfgServers {
		servers = append(servers, ICEServer(s))
	}

	if len(servers) == 0 {
		servers = append(servers, ICEServer{
			URLs: []string{"stun:stun.l.google.com:19302"},
		})
	}

	return servers
}

func (h *Handler) extractSDP(c echo.Context) (string, error) {
	contentType := c.Request().Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, h.maxSDPSize()))
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}

	switch mediaType {
	case "application/sdp":
		return string(body), nil

	case "application/json", "":
		var req OfferRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", fmt.Errorf("invalid JSON body: %w", err)
		}
		return req.SDP, nil

	default:
		return "", fmt.Errorf("unsupported content type: %s", contentType)
	}
}
