package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

const defaultKeyframeInterval = 2 * time.Second

// Peer receives the browser's camera track.
type Peer struct {
	pc               *webrtc.PeerConnection
	keyframeInterval time.Duration
	log              *slog.Logger

	mu          sync.RWMutex
	onVideo     func(*rtp.Packet, string)
	onConnected func()
	onFailed    func()

	done      chan struct{}
	closeOnce sync.Once
}

func NewPeer(pc *webrtc.PeerConnection, keyframeInterval time.Duration, log *slog.Logger) *Peer {
	if keyframeInterval <= 0 {
		keyframeInterval = defaultKeyframeInterval
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Peer{
		pc:               pc,
		keyframeInterval: keyframeInterval,
		log:              log,
		done:             make(chan struct{}),
	}

	pc.OnTrack(func(remoteTrack *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		codec := remoteTrack.Codec()
		p.log.Info("track received",
			"kind", remoteTrack.Kind().String(),
			"codec", codec.MimeType,
			"clock_rate", codec.ClockRate)

		if remoteTrack.Kind() != webrtc.RTPCodecTypeVideo {
			return
		}
		go p.requestKeyframes(uint32(remoteTrack.SSRC()))
		go p.readIncomingVideo(remoteTrack)
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.mu.RLock()
		onConnected := p.onConnected
		onFailed := p.onFailed
		p.mu.RUnlock()

		switch state {
		case webrtc.PeerConnectionStateConnected:
			if onConnected != nil {
				onConnected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			if onFailed != nil {
				onFailed()
			}
		}
	})

	return p
}

func (p *Peer) readIncomingVideo(track *webrtc.TrackRemote) {
	mimeType := track.Codec().MimeType
	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			p.log.Debug("video track ended", "error", err)
			return
		}

		p.mu.RLock()
		cb := p.onVideo
		p.mu.RUnlock()

		if cb != nil {
			cb(pkt, mimeType)
		}
	}
}

func (p *Peer) requestKeyframes(ssrc uint32) {
	ticker := time.NewTicker(p.keyframeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			err := p.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: ssrc}})
			if err != nil {
				p.log.Debug("keyframe request failed", "error", err)
			}
		}
	}
}

func (p *Peer) SetOffer(sdp string) error {
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	return p.pc.SetRemoteDescription(offer)
}

func (p *Peer) CreateAnswer() (string, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (p *Peer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *Peer) OnVideo(fn func(*rtp.Packet, string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onVideo = fn
}

func (p *Peer) OnConnected(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnected = fn
}

func (p *Peer) OnFailed(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailed = fn
}

func (p *Peer) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	p.pc.OnICECandidate(fn)
}

func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.pc.Close()
	})
	return err
}
