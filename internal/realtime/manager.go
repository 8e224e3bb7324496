package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
)

const vp8PayloadType = 96

// Manager owns the WebRTC API and the camera publishers, one per coaching session.
type Manager struct {
	cfg Config
	api *webrtc.API
	log *slog.Logger

	mu         sync.Mutex
	publishers map[string]*Publisher
	notify     map[string]*videoWait
}

// videoWait is closed by Register for everyone waiting on a session.
type videoWait struct {
	ch      chan struct{}
	waiters int
}

func NewManager(cfg Config, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}

	me := &webrtc.MediaEngine{}
	feedback := []webrtc.RTCPFeedback{
		{Type: "nack"},
		{Type: "nack", Parameter: "pli"},
	}
	if err := me.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:     webrtc.MimeTypeVP8,
			ClockRate:    90000,
			RTCPFeedback: feedback,
		},
		PayloadType: vp8PayloadType,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, err
	}

	se := &webrtc.SettingEngine{}

	if cfg.PortRange.Min > 0 && cfg.PortRange.Max > cfg.PortRange.Min {
		if err := se.SetEphemeralUDPPortRange(uint16(cfg.PortRange.Min), uint16(cfg.PortRange.Max)); err != nil {
			return nil, err
		}
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(me),
		webrtc.WithSettingEngine(*se),
	)

	return &Manager{
		cfg:        cfg,
		api:        api,
		log:        log.With("component", "rtc-manager"),
		publishers: make(map[string]*Publisher),
		notify:     make(map[string]*videoWait),
	}, nil
}

func (m *Manager) NewPeer() (*Peer, error) {
	pcConfig := webrtc.Configuration{
		ICEServers: m.iceServers(),
	}

	pc, err := m.api.NewPeerConnection(pcConfig)
	if err != nil {
		return nil, err
	}

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		_ = pc.Close()
		return nil, err
	}

	return NewPeer(pc, m.cfg.KeyframeInterval, m.log), nil
}

func (m *Manager) iceServers() []webrtc.ICEServer {
	servers := make([]webrtc.ICEServer, 0, len(m.cfg.ICEServers))
	for _, s := range m.cfg.ICEServers {
		server := webrtc.ICEServer{
			URLs: s.URLs,
		}
		if s.Username != "" {
			server.Username = s.Username
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, server)
	}

	if len(servers) == 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs: []string{"stun:stun.l.google.com:19302"},
		})
	}

	return servers
}

// NewFrameSink builds a sink using the configured decode throttle.
func (m *Manager) NewFrameSink(sessionID string) *FrameSink {
	return NewFrameSink(FrameSinkConfig{
		SessionID:      sessionID,
		DecodeInterval: m.cfg.DecodeInterval,
		Logger:         m.log,
	})
}

// Register makes pub the camera publisher for its session. A previous
// publisher for the same session is closed.
func (m *Manager) Register(pub *Publisher) {
	m.mu.Lock()
	old := m.publishers[pub.SessionID]
	m.publishers[pub.SessionID] = pub
	if w, ok := m.notify[pub.SessionID]; ok {
		close(w.ch)
		delete(m.notify, pub.SessionID)
	}
	m.mu.Unlock()

	if old != nil && old != pub {
		if err := old.Close(); err != nil {
			m.log.Debug("close replaced publisher", "session_id", pub.SessionID, "error", err)
		}
	}
}

func (m *Manager) Get(sessionID string) (*Publisher, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.publishers[sessionID]
	return p, ok
}

// WaitForVideo blocks until the session has a publisher that has decoded at
// least one frame, or ctx is done.
func (m *Manager) WaitForVideo(ctx context.Context, sessionID string) (*Publisher, error) {
	for {
		m.mu.Lock()
		pub, ok := m.publishers[sessionID]
		var wait *videoWait
		if !ok {
			wait, ok = m.notify[sessionID]
			if !ok {
				wait = &videoWait{ch: make(chan struct{})}
				m.notify[sessionID] = wait
			}
			wait.waiters++
		}
		m.mu.Unlock()

		if pub == nil {
			select {
			case <-ctx.Done():
				m.abandonWait(sessionID, wait)
				return nil, ctx.Err()
			case <-wait.ch:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-pub.VideoReady():
			return pub, nil
		case <-pub.Done():
			// replaced or dropped, look again
			m.mu.Lock()
			current := m.publishers[sessionID]
			m.mu.Unlock()
			if current == pub {
				return nil, ErrPublisherClosed
			}
		}
	}
}

// abandonWait drops the session's wait entry once its last waiter gives up.
func (m *Manager) abandonWait(sessionID string, wait *videoWait) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wait.waiters--
	if wait.waiters <= 0 && m.notify[sessionID] == wait {
		delete(m.notify, sessionID)
	}
}

// Remove closes and forgets the session's publisher.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	pub, ok := m.publishers[sessionID]
	delete(m.publishers, sessionID)
	m.mu.Unlock()

	if ok {
		if err := pub.Close(); err != nil {
			m.log.Debug("close publisher", "session_id", sessionID, "error", err)
		}
	}
}

// Detach removes pub only if it is still the session's current publisher.
func (m *Manager) Detach(pub *Publisher) {
	m.mu.Lock()
	current, ok := m.publishers[pub.SessionID]
	if ok && current == pub {
		delete(m.publishers, pub.SessionID)
	}
	m.mu.Unlock()

	_ = pub.Close()
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.publishers)
}

func (m *Manager) Close() {
	m.mu.Lock()
	pubs := make([]*Publisher, 0, len(m.publishers))
	for _, p := range m.publishers {
		pubs = append(pubs, p)
	}
	m.publishers = make(map[string]*Publisher)
	m.mu.Unlock()

	for _, p := range pubs {
		_ = p.Close()
	}
}

func (m *Manager) ICEServers() []ICEServerConfig {
	return m.cfg.ICEServers
}

func (m *Manager) Config() Config {
	return m.cfg
}
