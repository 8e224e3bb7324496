package realtime

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
)

var ErrPublisherClosed = errors.New("camera publisher closed")

// Publisher is one browser camera published for a coaching session.
type Publisher struct {
	SessionID string
	peer      *Peer
	sink      *FrameSink
	iceCh     chan webrtc.ICECandidateInit
	done      chan struct{}
	createdAt time.Time
	closeOnce sync.Once
	log       *slog.Logger
}

func NewPublisher(sessionID string, peer *Peer, sink *FrameSink, iceBufSize int, log *slog.Logger) *Publisher {
	if iceBufSize <= 0 {
		iceBufSize = 128
	}
	if log == nil {
		log = slog.Default()
	}

	return &Publisher{
		SessionID: sessionID,
		peer:      peer,
		sink:      sink,
		iceCh:     make(chan webrtc.ICECandidateInit, iceBufSize),
		done:      make(chan struct{}),
		createdAt: time.Now(),
		log:       log,
	}
}

func (p *Publisher) Peer() *Peer {
	return p.peer
}

// Frame returns the newest decoded frame.
func (p *Publisher) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case <-p.done:
		return nil, ErrPublisherClosed
	default:
	}

	img, _, ok := p.sink.Latest()
	if !ok {
		return nil, errNoFrame
	}
	return img, nil
}

// VideoReady is closed once the first frame has been decoded.
func (p *Publisher) VideoReady() <-chan struct{} {
	return p.sink.Ready()
}

func (p *Publisher) SendICE(candidate webrtc.ICECandidateInit) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.iceCh <- candidate:
	default:
		p.log.Warn("ICE candidate dropped, buffer full", "session_id", p.SessionID)
	}
}

func (p *Publisher) ICECandidates() <-chan webrtc.ICECandidateInit {
	return p.iceCh
}

func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

// Close stops decoding and closes the peer connection, releasing the remote tracks.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.sink.Stop()
		if p.peer != nil {
			err = p.peer.Close()
		}
	})
	return err
}

func (p *Publisher) CreatedAt() time.Time {
	return p.createdAt
}

var errNoFrame = errors.New("no frame received yet")
