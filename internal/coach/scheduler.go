package coach

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/insights"
	"github.com/eleven-am/presence-coach/internal/metrics"
	"github.com/eleven-am/presence-coach/internal/vision"
)

const (
	DefaultInterval = 3 * time.Second
	statsEvery      = 5
	statsTimeout    = 5 * time.Second
)

type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeReady         Mode = "ready"
	ModeAutoCapturing Mode = "auto_capturing"
)

type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseCapturing        Phase = "capturing"
	PhaseAwaitingResponse Phase = "awaiting_response"
)

var (
	ErrCycleInFlight   = errors.New("a capture cycle is already in flight")
	ErrDeviceInactive  = errors.New("camera is not enabled")
	ErrDisposed        = errors.New("session has been disposed")
	ErrResultDiscarded = errors.New("camera was released before the result arrived")

	errNotArmed = errors.New("auto-capture is not armed")
)

// Device is the camera a scheduler owns.
type Device interface {
	Start(ctx context.Context) error
	Stop() error
	State() camera.State
	Err() string
	Frame(ctx context.Context) (image.Image, error)
}

type Encoder interface {
	Capture(ctx context.Context, src vision.FrameSource) (*vision.CapturedFrame, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, frame *vision.CapturedFrame) (*vision.AnalysisResult, error)
}

// StatsSink refreshes the detector's side-channel statistics for a session.
type StatsSink interface {
	Publish(ctx context.Context, sessionID string) error
}

type SchedulerConfig struct {
	SessionID string
	Device    Device
	Encoder   Encoder
	Analyzer  Analyzer
	History   *insights.History
	Stats     StatsSink
	Listener  Listener
	Clock     clock.Clock
	Interval  time.Duration
	Logger    *slog.Logger
}

// Scheduler drives capture cycles for one coaching session. At most one cycle
// is outstanding at any time; ticks that find one in flight are dropped.
type Scheduler struct {
	sessionID string
	device    Device
	encoder   Encoder
	analyzer  Analyzer
	history   *insights.History
	stats     StatsSink
	listener  Listener
	clock     clock.Clock
	interval  time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// deviceMu serializes camera acquisition and release.
	deviceMu sync.Mutex

	mu           sync.Mutex
	mode         Mode
	phase        Phase
	token        uint64
	successes    int
	failures     int
	skipped      int
	disposed     bool
	ticker       *clock.Ticker
	tickStop     chan struct{}
	lastNotice   *Notice
	lastActivity time.Time
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.History == nil {
		cfg.History = insights.NewHistory()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sessionID:    cfg.SessionID,
		device:       cfg.Device,
		encoder:      cfg.Encoder,
		analyzer:     cfg.Analyzer,
		history:      cfg.History,
		stats:        cfg.Stats,
		listener:     cfg.Listener,
		clock:        cfg.Clock,
		interval:     cfg.Interval,
		logger:       cfg.Logger.With("component", "capture-scheduler", "session_id", cfg.SessionID),
		ctx:          ctx,
		cancel:       cancel,
		mode:         ModeIdle,
		phase:        PhaseIdle,
		lastActivity: cfg.Clock.Now(),
	}
}

// EnableDevice acquires the camera. On failure the scheduler stays idle and
// the acquisition error is returned and announced.
func (s *Scheduler) EnableDevice(ctx context.Context) error {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	if s.mode != ModeIdle {
		s.mu.Unlock()
		return nil
	}
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()

	if err := s.device.Start(ctx); err != nil {
		metrics.DeviceAcquisitions.WithLabelValues("failed").Inc()
		s.recordFailure(err)
		return err
	}
	metrics.DeviceAcquisitions.WithLabelValues("ok").Inc()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		_ = s.device.Stop()
		return ErrDisposed
	}
	s.mode = ModeReady
	s.mu.Unlock()

	s.logger.Info("camera enabled")
	s.emitMode(ModeReady)
	return nil
}

// DisableDevice disarms auto-capture and releases the camera. A result still
// in flight is discarded. Calling it again is a no-op.
func (s *Scheduler) DisableDevice() error {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	changed := s.mode != ModeIdle
	s.disarmLocked()
	s.mode = ModeIdle
	s.token++
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()

	err := s.device.Stop()
	if changed {
		s.logger.Info("camera disabled")
		s.emitMode(ModeIdle)
	}
	return err
}

// ToggleAutoCapture arms or disarms periodic capture. Disarming lets an
// in-flight cycle finish and record its result.
func (s *Scheduler) ToggleAutoCapture() (Mode, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ModeIdle, ErrDisposed
	}

	switch s.mode {
	case ModeIdle:
		s.mu.Unlock()
		return ModeIdle, ErrDeviceInactive
	case ModeReady:
		s.armLocked()
		s.mode = ModeAutoCapturing
	case ModeAutoCapturing:
		s.disarmLocked()
		s.mode = ModeReady
	}
	mode := s.mode
	s.lastActivity = s.clock.Now()
	s.mu.Unlock()

	s.logger.Info("auto-capture toggled", "mode", mode, "interval", s.interval)
	s.emitMode(mode)
	return mode, nil
}

// Cycle is the outcome of one successful capture: the result and the
// insights computed right after it was appended.
type Cycle struct {
	Result   *vision.AnalysisResult
	Insights *insights.Insights
}

// TriggerOnce runs a single cycle and returns its result. If a cycle is
// already outstanding it returns ErrCycleInFlight and does nothing else.
// Cancelling ctx stops the wait but not the cycle.
func (s *Scheduler) TriggerOnce(ctx context.Context) (*vision.AnalysisResult, error) {
	cycle, err := s.Capture(ctx)
	if err != nil {
		return nil, err
	}
	return cycle.Result, nil
}

// Capture is TriggerOnce returning the insights of that same cycle.
func (s *Scheduler) Capture(ctx context.Context) (*Cycle, error) {
	token, err := s.begin(false)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		cycle *Cycle
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer s.wg.Done()
		cycle, err := s.runCycle(token)
		done <- outcome{cycle, err}
	}()

	select {
	case o := <-done:
		return o.cycle, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispose releases everything the scheduler holds and waits for its
// goroutines. Later calls on the scheduler return ErrDisposed.
func (s *Scheduler) Dispose() error {
	s.deviceMu.Lock()

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		s.deviceMu.Unlock()
		return nil
	}
	s.disposed = true
	s.disarmLocked()
	s.mode = ModeIdle
	s.token++
	s.mu.Unlock()

	s.cancel()
	err := s.device.Stop()
	s.deviceMu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler disposed")
	return err
}

// begin claims the single cycle slot.
func (s *Scheduler) begin(fromTick bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return 0, ErrDisposed
	}
	if fromTick && s.mode != ModeAutoCapturing {
		return 0, errNotArmed
	}
	if s.phase != PhaseIdle {
		return 0, ErrCycleInFlight
	}

	s.phase = PhaseCapturing
	s.lastActivity = s.clock.Now()
	s.wg.Add(1)
	return s.token, nil
}

func (s *Scheduler) runCycle(token uint64) (*Cycle, error) {
	start := s.clock.Now()

	frame, err := s.encoder.Capture(s.ctx, s.device)
	metrics.StageDuration.WithLabelValues("encode").Observe(s.clock.Since(start).Seconds())
	if err != nil {
		return nil, s.finishFailed(err)
	}

	s.mu.Lock()
	s.phase = PhaseAwaitingResponse
	s.mu.Unlock()

	inferStart := s.clock.Now()
	result, err := s.analyzer.Analyze(s.ctx, frame)
	metrics.StageDuration.WithLabelValues("inference").Observe(s.clock.Since(inferStart).Seconds())
	if err != nil {
		return nil, s.finishFailed(err)
	}

	s.mu.Lock()
	if s.disposed || s.token != token {
		s.phase = PhaseIdle
		s.mu.Unlock()
		metrics.CyclesTotal.WithLabelValues("discarded").Inc()
		s.logger.Debug("result discarded after camera release", "category", result.Category)
		return nil, ErrResultDiscarded
	}
	s.history.Append(*result)
	summary := insights.Compute(s.history)
	s.successes++
	refreshStats := s.stats != nil && s.successes%statsEvery == 0
	s.phase = PhaseIdle
	s.mu.Unlock()

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	metrics.CategoryTotal.WithLabelValues(result.Category.String()).Inc()
	metrics.StageDuration.WithLabelValues("cycle").Observe(s.clock.Since(start).Seconds())

	s.logger.Debug("cycle complete",
		"category", result.Category,
		"confidence", result.Confidence,
		"history_len", s.history.Len())

	s.emit(Event{
		Type:     EventResult,
		Result:   result,
		Insights: summary,
	})

	if refreshStats {
		s.refreshStats()
	}

	return &Cycle{Result: result, Insights: summary}, nil
}

func (s *Scheduler) finishFailed(err error) error {
	s.mu.Lock()
	s.phase = PhaseIdle
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		metrics.CyclesTotal.WithLabelValues("discarded").Inc()
		return ErrResultDiscarded
	}

	metrics.CyclesTotal.WithLabelValues(vision.ErrorKind(err)).Inc()
	s.recordFailure(err)
	return err
}

// recordFailure keeps the failure as the latest notice and announces it.
func (s *Scheduler) recordFailure(err error) {
	notice := &Notice{
		Kind:    vision.ErrorKind(err),
		Message: noticeMessage(err),
		At:      s.clock.Now(),
	}

	s.mu.Lock()
	s.failures++
	s.lastNotice = notice
	s.mu.Unlock()

	s.logger.Warn("capture step failed", "kind", notice.Kind, "error", err)
	s.emit(Event{Type: EventNotice, Notice: notice})
}

func noticeMessage(err error) string {
	var inference *vision.InferenceError
	var notReady *vision.NotReadyError
	var acquisition *camera.AcquisitionError

	switch {
	case errors.As(err, &acquisition):
		return camera.AcquisitionMessage
	case errors.As(err, &notReady):
		return "no active device to capture from"
	case errors.As(err, &inference):
		return inference.Message
	default:
		return err.Error()
	}
}

func (s *Scheduler) refreshStats() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(s.ctx, statsTimeout)
		defer cancel()

		if err := s.stats.Publish(ctx, s.sessionID); err != nil {
			metrics.StatsRefreshes.WithLabelValues("failed").Inc()
			s.logger.Warn("stats refresh failed", "error", err)
			return
		}
		metrics.StatsRefreshes.WithLabelValues("ok").Inc()
	}()
}

func (s *Scheduler) armLocked() {
	ticker := s.clock.Ticker(s.interval)
	stop := make(chan struct{})
	s.ticker = ticker
	s.tickStop = stop

	s.wg.Add(1)
	go s.tickLoop(ticker, stop)
}

func (s *Scheduler) disarmLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.tickStop)
	s.ticker = nil
	s.tickStop = nil
}

func (s *Scheduler) tickLoop(ticker *clock.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.onTick()
		}
	}
}

func (s *Scheduler) onTick() {
	token, err := s.begin(true)
	switch {
	case errors.Is(err, ErrCycleInFlight):
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		metrics.TicksSkipped.Inc()
		s.logger.Debug("tick skipped, cycle in flight")
		return
	case err != nil:
		return
	}

	go func() {
		defer s.wg.Done()
		_, _ = s.runCycle(token)
	}()
}

func (s *Scheduler) emitMode(mode Mode) {
	s.emit(Event{Type: EventMode, Mode: mode})
}

func (s *Scheduler) emit(ev Event) {
	if s.listener == nil {
		return
	}
	ev.SessionID = s.sessionID
	ev.Timestamp = s.clock.Now()
	s.listener(ev)
}

type Status struct {
	SessionID    string       `json:"session_id"`
	Mode         Mode         `json:"mode"`
	Phase        Phase        `json:"phase"`
	DeviceState  camera.State `json:"device_state"`
	DeviceError  string       `json:"device_error,omitempty"`
	Interval     string       `json:"interval"`
	HistorySize  int          `json:"history_size"`
	Successes    int          `json:"successes"`
	Failures     int          `json:"failures"`
	TicksSkipped int          `json:"ticks_skipped"`
	LastNotice   *Notice      `json:"last_notice,omitempty"`
	LastActivity time.Time    `json:"last_activity"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := Status{
		SessionID:    s.sessionID,
		Mode:         s.mode,
		Phase:        s.phase,
		Interval:     s.interval.String(),
		Successes:    s.successes,
		Failures:     s.failures,
		TicksSkipped: s.skipped,
		LastNotice:   s.lastNotice,
		LastActivity: s.lastActivity,
	}
	s.mu.Unlock()

	st.DeviceState = s.device.State()
	st.DeviceError = s.device.Err()
	st.HistorySize = s.history.Len()
	return st
}

func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Insights returns nil until enough results have been recorded.
func (s *Scheduler) Insights() *insights.Insights {
	return insights.Compute(s.history)
}

// History returns the most recent results for display, oldest first.
func (s *Scheduler) History() []vision.AnalysisResult {
	return s.history.Snapshot()
}

func (s *Scheduler) HistoryLen() int {
	return s.history.Len()
}

// IdleSince reports when the session was last driven. Auto-capturing
// sessions are never idle.
func (s *Scheduler) IdleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeAutoCapturing || s.phase != PhaseIdle {
		return time.Time{}, false
	}
	return s.lastActivity, true
}
