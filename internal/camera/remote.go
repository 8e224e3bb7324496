package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/eleven-am/presence-coach/internal/realtime"
)

const DefaultOpenTimeout = 5 * time.Second

// Publishers is the subset of the WebRTC manager a RemoteSource needs.
type Publishers interface {
	WaitForVideo(ctx context.Context, sessionID string) (*realtime.Publisher, error)
	Detach(pub *realtime.Publisher)
}

// RemoteSource serves frames from a browser camera published over WebRTC.
// Opening waits for the session's publisher to deliver its first frame.
type RemoteSource struct {
	publishers  Publishers
	openTimeout time.Duration
	logger      *slog.Logger
}

func NewRemoteSource(publishers Publishers, openTimeout time.Duration, logger *slog.Logger) *RemoteSource {
	if openTimeout <= 0 {
		openTimeout = DefaultOpenTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteSource{
		publishers:  publishers,
		openTimeout: openTimeout,
		logger:      logger.With("component", "remote-camera"),
	}
}

func (s *RemoteSource) Open(ctx context.Context, sessionID string, _ Constraints) (Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, s.openTimeout)
	defer cancel()

	pub, err := s.publishers.WaitForVideo(ctx, sessionID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("no camera published within %s: %w", s.openTimeout, ErrNoVideoTrack)
		}
		return nil, err
	}

	s.logger.Debug("remote camera attached", "session_id", sessionID)
	return &remoteStream{publishers: s.publishers, pub: pub}, nil
}

type remoteStream struct {
	publishers Publishers
	pub        *realtime.Publisher
}

func (s *remoteStream) Frame(ctx context.Context) (image.Image, error) {
	img, err := s.pub.Frame(ctx)
	if errors.Is(err, realtime.ErrPublisherClosed) {
		return nil, ErrNoFrame
	}
	return img, err
}

// Close tears down the peer connection so the browser's tracks end.
func (s *remoteStream) Close() error {
	s.publishers.Detach(s.pub)
	return nil
}
