package realtime

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/samplebuilder"
)

const defaultDecodeInterval = 500 * time.Millisecond

// FrameSink reassembles RTP video into frames and keeps only the newest
// decoded one. Older frames are overwritten, never queued.
type FrameSink struct {
	sessionID      string
	logger         *slog.Logger
	decoder        VideoDecoder
	decodeInterval time.Duration

	mu            sync.Mutex
	sampleBuilder *samplebuilder.SampleBuilder
	mimeType      string
	lastDecode    time.Time
	stopped       bool

	frameMu   sync.RWMutex
	latest    image.Image
	latestAt  time.Time
	ready     chan struct{}
	readyOnce sync.Once
}

type FrameSinkConfig struct {
	SessionID      string
	Decoder        VideoDecoder
	DecodeInterval time.Duration
	Logger         *slog.Logger
}

func NewFrameSink(cfg FrameSinkConfig) *FrameSink {
	if cfg.DecodeInterval <= 0 {
		cfg.DecodeInterval = defaultDecodeInterval
	}
	if cfg.Decoder == nil {
		cfg.Decoder = NewVP8Decoder()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &FrameSink{
		sessionID:      cfg.SessionID,
		logger:         cfg.Logger.With("component", "frame-sink", "session_id", cfg.SessionID),
		decoder:        cfg.Decoder,
		decodeInterval: cfg.DecodeInterval,
		ready:          make(chan struct{}),
	}
}

func (s *FrameSink) HandleRTPPacket(pkt *rtp.Packet, mimeType string) {
	data, ok := s.push(pkt, mimeType)
	if !ok {
		return
	}

	img, err := s.decoder.Decode(data, mimeType)
	if err != nil {
		if !errors.Is(err, errNotKeyFrame) {
			s.logger.Debug("frame decode failed", "error", err)
		}
		return
	}

	s.Publish(img, time.Now())
}

// push feeds the packet to the sample builder and returns the newest key frame
// due for decoding, if any.
func (s *FrameSink) push(pkt *rtp.Packet, mimeType string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, false
	}

	if s.sampleBuilder == nil || s.mimeType != mimeType {
		s.mimeType = mimeType
		s.sampleBuilder = s.createSampleBuilder(mimeType)
	}
	if s.sampleBuilder == nil {
		return nil, false
	}

	s.sampleBuilder.Push(pkt)

	var pending []byte
	for {
		sample := s.sampleBuilder.Pop()
		if sample == nil {
			break
		}
		if !isVP8KeyFrame(sample.Data) {
			continue
		}
		pending = sample.Data
	}

	if pending == nil {
		return nil, false
	}

	now := time.Now()
	if now.Sub(s.lastDecode) < s.decodeInterval {
		return nil, false
	}
	s.lastDecode = now

	return pending, true
}

func (s *FrameSink) createSampleBuilder(mimeType string) *samplebuilder.SampleBuilder {
	switch mimeType {
	case webrtc.MimeTypeVP8:
		return samplebuilder.New(64, &codecs.VP8Packet{}, 90000)
	default:
		s.logger.Warn("unsupported video codec", "mime_type", mimeType)
		return nil
	}
}

// Publish replaces the latest frame.
func (s *FrameSink) Publish(img image.Image, at time.Time) {
	if img == nil {
		return
	}

	s.frameMu.Lock()
	s.latest = img
	s.latestAt = at
	s.frameMu.Unlock()

	s.readyOnce.Do(func() {
		close(s.ready)
		s.logger.Info("first video frame decoded",
			"width", img.Bounds().Dx(),
			"height", img.Bounds().Dy())
	})
}

func (s *FrameSink) Latest() (image.Image, time.Time, bool) {
	s.frameMu.RLock()
	defer s.frameMu.RUnlock()
	return s.latest, s.latestAt, s.latest != nil
}

// Ready is closed once the first frame has been decoded.
func (s *FrameSink) Ready() <-chan struct{} {
	return s.ready
}

func (s *FrameSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.sampleBuilder = nil
}
