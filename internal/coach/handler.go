package coach

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/dto"
	"github.com/eleven-am/presence-coach/internal/insights"
	"github.com/eleven-am/presence-coach/internal/shared"
	"github.com/eleven-am/presence-coach/internal/vision"
	"github.com/labstack/echo/v4"
)

// StatsReader serves cached detector stats.
type StatsReader interface {
	Latest(ctx context.Context, sessionID string) (*StatsSnapshot, error)
}

type Handler struct {
	manager *Manager
	stats   StatsReader
	logger  *slog.Logger
}

func NewHandler(manager *Manager, stats StatsReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager: manager,
		stats:   stats,
		logger:  logger.With("handler", "coach"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/sessions", h.Create)
	g.GET("/sessions", h.List)
	g.GET("/sessions/:id", h.Get)
	g.DELETE("/sessions/:id", h.Delete)
	g.POST("/sessions/:id/device", h.EnableDevice)
	g.DELETE("/sessions/:id/device", h.DisableDevice)
	g.POST("/sessions/:id/capture", h.Capture)
	g.POST("/sessions/:id/auto", h.ToggleAutoCapture)
	g.GET("/sessions/:id/insights", h.Insights)
	g.GET("/sessions/:id/history", h.History)
	g.GET("/sessions/:id/stats", h.Stats)
	g.GET("/sessions/:id/events", h.Events)
}

func (h *Handler) session(c echo.Context) (*Session, error) {
	s, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return nil, shared.NotFound("session_not_found", "session not found")
	}
	return s, nil
}

// Create godoc
// @Summary      Create a coaching session
// @Description  Creates an idle session with no camera attached
// @Tags         sessions
// @Produce      json
// @Success      201  {object}  dto.CreateSessionResponse
// @Failure      500  {object}  shared.APIError
// @Router       /sessions [post]
func (h *Handler) Create(c echo.Context) error {
	s, err := h.manager.Create()
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		return shared.InternalError("create_failed", "failed to create session")
	}

	return c.JSON(http.StatusCreated, dto.CreateSessionResponse{
		SessionID: s.ID,
		Mode:      string(s.Scheduler.Mode()),
	})
}

// List godoc
// @Summary      List coaching sessions
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  dto.SessionListResponse
// @Router       /sessions [get]
func (h *Handler) List(c echo.Context) error {
	infos := h.manager.List()

	sessions := make([]dto.SessionSummary, len(infos))
	for i, info := range infos {
		sessions[i] = dto.SessionSummary{
			SessionID:   info.SessionID,
			Mode:        string(info.Mode),
			DeviceState: string(info.DeviceState),
			HistorySize: info.HistorySize,
			CreatedAt:   info.CreatedAt.Format(time.RFC3339),
		}
	}

	return c.JSON(http.StatusOK, dto.SessionListResponse{
		Total:    len(sessions),
		Sessions: sessions,
	})
}

// Get godoc
// @Summary      Get session state
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.SessionStatusResponse
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id} [get]
func (h *Handler) Get(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statusToResponse(s.Scheduler.Status()))
}

// Delete godoc
// @Summary      Dispose a coaching session
// @Description  Releases the camera, stops capture and forgets the session
// @Tags         sessions
// @Param        id   path  string  true  "Session ID"
// @Success      204
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id} [delete]
func (h *Handler) Delete(c echo.Context) error {
	err := h.manager.Remove(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		h.logger.Warn("session disposed with error", "session_id", c.Param("id"), "error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// EnableDevice godoc
// @Summary      Enable the camera
// @Description  Acquires the camera for the session. Idempotent while enabled.
// @Tags         device
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.ModeResponse
// @Failure      404  {object}  shared.APIError
// @Failure      422  {object}  shared.APIError
// @Router       /sessions/{id}/device [post]
func (h *Handler) EnableDevice(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	if err := s.Scheduler.EnableDevice(c.Request().Context()); err != nil {
		var acq *camera.AcquisitionError
		if errors.As(err, &acq) {
			return shared.UnprocessableEntity("device_acquisition", camera.AcquisitionMessage)
		}
		return h.schedulerError(err)
	}

	return c.JSON(http.StatusOK, modeResponse(s))
}

// DisableDevice godoc
// @Summary      Disable the camera
// @Description  Stops auto-capture and releases the camera. Idempotent.
// @Tags         device
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.ModeResponse
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id}/device [delete]
func (h *Handler) DisableDevice(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	if err := s.Scheduler.DisableDevice(); err != nil {
		if errors.Is(err, ErrDisposed) {
			return h.schedulerError(err)
		}
		h.logger.Warn("camera release reported an error", "session_id", s.ID, "error", err)
	}

	return c.JSON(http.StatusOK, modeResponse(s))
}

// Capture godoc
// @Summary      Capture once
// @Description  Runs a single capture cycle and returns the result with the current insights
// @Tags         capture
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.CaptureResponse
// @Failure      404  {object}  shared.APIError
// @Failure      409  {object}  shared.APIError
// @Failure      422  {object}  shared.APIError
// @Failure      502  {object}  shared.APIError
// @Router       /sessions/{id}/capture [post]
func (h *Handler) Capture(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	cycle, err := s.Scheduler.Capture(c.Request().Context())
	if err != nil {
		return h.schedulerError(err)
	}

	return c.JSON(http.StatusOK, dto.CaptureResponse{
		Result:   resultToResponse(*cycle.Result),
		Insights: insightsToResponse(cycle.Insights),
	})
}

// ToggleAutoCapture godoc
// @Summary      Toggle auto-capture
// @Description  Arms or disarms periodic capture on an enabled camera
// @Tags         capture
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.ModeResponse
// @Failure      404  {object}  shared.APIError
// @Failure      422  {object}  shared.APIError
// @Router       /sessions/{id}/auto [post]
func (h *Handler) ToggleAutoCapture(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	if _, err := s.Scheduler.ToggleAutoCapture(); err != nil {
		return h.schedulerError(err)
	}

	return c.JSON(http.StatusOK, modeResponse(s))
}

// Insights godoc
// @Summary      Get insights
// @Description  Aggregates the most recent results. Returns 204 until three results exist.
// @Tags         insights
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.InsightsResponse
// @Success      204
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id}/insights [get]
func (h *Handler) Insights(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	summary := s.Scheduler.Insights()
	if summary == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, insightsToResponse(summary))
}

// History godoc
// @Summary      Get recent results
// @Description  Returns up to the last eight results, oldest first
// @Tags         insights
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id}/history [get]
func (h *Handler) History(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}

	snapshot := s.Scheduler.History()
	entries := make([]dto.AnalysisResultResponse, len(snapshot))
	for i, r := range snapshot {
		entries[i] = resultToResponse(r)
	}

	return c.JSON(http.StatusOK, dto.HistoryResponse{
		Size:     s.Scheduler.HistoryLen(),
		Capacity: insights.HistoryCapacity,
		Entries:  entries,
	})
}

// Stats godoc
// @Summary      Get detector stats
// @Description  Returns the latest detector statistics cached for the session
// @Tags         insights
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  dto.StatsResponse
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id}/stats [get]
func (h *Handler) Stats(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	if h.stats == nil {
		return shared.NotFound("stats_not_found", "no stats cached for session")
	}

	snap, err := h.stats.Latest(c.Request().Context(), s.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("stats_not_found", "no stats cached for session")
	}
	if err != nil {
		h.logger.Error("failed to read stats", "session_id", s.ID, "error", err)
		return shared.InternalError("stats_failed", "failed to read stats")
	}

	return c.JSON(http.StatusOK, dto.StatsResponse{
		SessionID:   s.ID,
		RefreshedAt: snap.RefreshedAt.Format(time.RFC3339),
		Payload:     snap.Payload,
	})
}

func (h *Handler) schedulerError(err error) error {
	var notReady *vision.NotReadyError
	var inference *vision.InferenceError
	var malformed *vision.MalformedResponseError

	switch {
	case errors.Is(err, ErrCycleInFlight):
		return shared.Conflict("cycle_in_flight", "a capture cycle is already in flight")
	case errors.Is(err, ErrResultDiscarded):
		return shared.Conflict("result_discarded", "camera was released before the result arrived")
	case errors.Is(err, ErrDisposed):
		return shared.Conflict("session_disposed", "session has been disposed")
	case errors.Is(err, ErrDeviceInactive):
		return shared.UnprocessableEntity("device_inactive", "enable the camera first")
	case errors.As(err, &notReady):
		return shared.UnprocessableEntity("not_ready", "no active device to capture from")
	case errors.As(err, &inference):
		apiErr := shared.NewAPIError("inference", inference.Message)
		if inference.Status > 0 {
			apiErr = apiErr.WithDetails(map[string]int{"upstream_status": inference.Status})
		}
		return apiErr.ToHTTP(http.StatusBadGateway)
	case errors.As(err, &malformed):
		return shared.BadGateway("malformed_response", malformed.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return shared.GatewayTimeout("timeout", "request ended before the cycle completed")
	default:
		h.logger.Error("scheduler operation failed", "error", err)
		return shared.InternalError("internal", "capture failed")
	}
}

func modeResponse(s *Session) dto.ModeResponse {
	st := s.Scheduler.Status()
	resp := dto.ModeResponse{
		SessionID:   s.ID,
		Mode:        string(st.Mode),
		DeviceState: string(st.DeviceState),
	}
	if st.Mode == ModeAutoCapturing {
		resp.Interval = st.Interval
	}
	return resp
}

func statusToResponse(st Status) dto.SessionStatusResponse {
	resp := dto.SessionStatusResponse{
		SessionID:    st.SessionID,
		Mode:         string(st.Mode),
		Phase:        string(st.Phase),
		DeviceState:  string(st.DeviceState),
		DeviceError:  st.DeviceError,
		Interval:     st.Interval,
		HistorySize:  st.HistorySize,
		Successes:    st.Successes,
		Failures:     st.Failures,
		TicksSkipped: st.TicksSkipped,
		LastActivity: st.LastActivity.UTC().Format(time.RFC3339),
	}
	if st.LastNotice != nil {
		resp.LastNotice = &dto.NoticeResponse{
			Kind:    st.LastNotice.Kind,
			Message: st.LastNotice.Message,
			At:      st.LastNotice.At.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

func resultToResponse(r vision.AnalysisResult) dto.AnalysisResultResponse {
	details := make(map[string]float64, len(r.Details))
	for c, v := range r.Details {
		details[c.String()] = v
	}
	return dto.AnalysisResultResponse{
		Timestamp:          r.Timestamp.UTC().Format(time.RFC3339Nano),
		DominantCategory:   r.Category.String(),
		Confidence:         r.Confidence,
		Details:            details,
		Recommendations:    r.Recommendations,
		InterviewReadiness: r.Readiness,
		StabilityScore:     r.StabilityScore,
	}
}

func insightsToResponse(in *insights.Insights) *dto.InsightsResponse {
	if in == nil {
		return nil
	}
	return &dto.InsightsResponse{
		DominantCategory:  in.DominantCategory.String(),
		AverageConfidence: in.AverageConfidence,
		Stability:         string(in.Stability),
		Recommendation:    in.Recommendation,
		WindowSize:        in.WindowSize,
	}
}
