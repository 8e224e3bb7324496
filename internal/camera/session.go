package camera

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// Session owns one camera acquisition. Start and Stop are the only places the
// underlying device is opened or released.
type Session struct {
	id          string
	source      Source
	constraints Constraints
	logger      *slog.Logger

	// opMu serializes Start and Stop so only one transition touches the device.
	opMu sync.Mutex

	mu     sync.RWMutex
	state  State
	errMsg string
	stream Stream
}

type SessionConfig struct {
	ID          string
	Source      Source
	Constraints Constraints
	Logger      *slog.Logger
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Constraints.Width == 0 || cfg.Constraints.Height == 0 {
		cfg.Constraints = DefaultConstraints()
	}

	return &Session{
		id:          cfg.ID,
		source:      cfg.Source,
		constraints: cfg.Constraints,
		logger:      cfg.Logger.With("component", "camera-session", "session_id", cfg.ID),
		state:       StateInactive,
	}
}

// Start acquires the camera. It is a no-op while already active.
func (s *Session) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() == StateActive {
		return nil
	}

	if s.source == nil {
		return s.fail(fmt.Errorf("no camera source configured"))
	}

	stream, err := s.source.Open(ctx, s.id, s.constraints)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.stream = stream
	s.state = StateActive
	s.errMsg = ""
	s.mu.Unlock()

	s.logger.Info("camera acquired",
		"width", s.constraints.Width,
		"height", s.constraints.Height,
		"facing_mode", s.constraints.FacingMode)
	return nil
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.stream = nil
	s.state = StateFailed
	s.errMsg = AcquisitionMessage
	s.mu.Unlock()

	s.logger.Warn("camera acquisition failed", "error", err)
	return &AcquisitionError{Err: err}
}

// Stop releases the camera if held. Calling it on an inactive or failed
// session is a no-op; a failed session is reset to inactive.
func (s *Session) Stop() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	stream := s.stream
	wasActive := s.state == StateActive
	s.stream = nil
	s.state = StateInactive
	s.errMsg = ""
	s.mu.Unlock()

	if !wasActive || stream == nil {
		return nil
	}

	if err := stream.Close(); err != nil {
		s.logger.Error("failed to release camera", "error", err)
		return fmt.Errorf("release camera: %w", err)
	}

	s.logger.Info("camera released")
	return nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the user-facing error message of a failed session.
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Session) Frame(ctx context.Context) (image.Image, error) {
	s.mu.RLock()
	stream := s.stream
	active := s.state == StateActive
	s.mu.RUnlock()

	if !active || stream == nil {
		return nil, ErrInactive
	}
	return stream.Frame(ctx)
}

func (s *Session) ID() string {
	return s.id
}
