package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"

	// Registers the host's video input devices with mediadevices.
	_ "github.com/pion/mediadevices/pkg/driver/camera"
)

// LocalSource opens a camera attached to the host. mediadevices has no facing
// mode constraint, so the first video input matching the resolution is used.
type LocalSource struct {
	logger *slog.Logger

	// Only one process-wide handle can hold a V4L2/AVFoundation device.
	mu sync.Mutex
}

func NewLocalSource(logger *slog.Logger) *LocalSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSource{logger: logger.With("component", "local-camera")}
}

func (s *LocalSource) Open(ctx context.Context, sessionID string, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	media, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(mc *mediadevices.MediaTrackConstraints) {
			mc.Width = prop.Int(c.Width)
			mc.Height = prop.Int(c.Height)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user media: %w", err)
	}

	tracks := media.GetTracks()
	videoTracks := media.GetVideoTracks()
	if len(videoTracks) == 0 {
		closeTracks(tracks)
		return nil, ErrNoVideoTrack
	}

	track, ok := videoTracks[0].(*mediadevices.VideoTrack)
	if !ok {
		closeTracks(tracks)
		return nil, fmt.Errorf("unexpected video track type %T", videoTracks[0])
	}

	s.logger.Debug("local camera opened", "session_id", sessionID, "tracks", len(tracks))

	return &localStream{
		tracks: tracks,
		reader: track.NewReader(true),
	}, nil
}

type localStream struct {
	tracks []mediadevices.Track
	reader video.Reader

	readMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func (s *localStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	img, release, err := s.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if release != nil {
		release()
	}
	return img, nil
}

func (s *localStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = closeTracks(s.tracks)
	})
	return s.closeErr
}

func closeTracks(tracks []mediadevices.Track) error {
	var errs []error
	for _, t := range tracks {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
