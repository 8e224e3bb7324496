package coach

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/insights"
	"github.com/eleven-am/presence-coach/internal/metrics"
	"github.com/eleven-am/presence-coach/internal/shared"
)

const sessionIDPrefix = "ses_"

// Session is one coaching controller: a camera, its scheduler and the event
// fan-out for connected viewers.
type Session struct {
	ID        string
	CreatedAt time.Time
	Scheduler *Scheduler
	Events    *Broadcaster
}

// StatsStore is a StatsSink whose cached payloads can be dropped.
type StatsStore interface {
	StatsSink
	Forget(ctx context.Context, sessionID string) error
}

type ManagerConfig struct {
	Source      camera.Source
	Constraints camera.Constraints
	Encoder     Encoder
	Analyzer    Analyzer
	Stats       StatsStore
	Clock       clock.Clock
	Interval    time.Duration
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

type Manager struct {
	cfg      ManagerConfig
	clock    clock.Clock
	sessions map[string]*Session
	mu       sync.RWMutex
	log      *slog.Logger
	closed   bool
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Manager{
		cfg:      cfg,
		clock:    cfg.Clock,
		sessions: make(map[string]*Session),
		log:      cfg.Logger.With("component", "coach_manager"),
	}
}

func (m *Manager) Create() (*Session, error) {
	id := shared.NewID(sessionIDPrefix)
	events := NewBroadcaster()

	device := camera.NewSession(camera.SessionConfig{
		ID:          id,
		Source:      m.cfg.Source,
		Constraints: m.cfg.Constraints,
		Logger:      m.cfg.Logger,
	})

	var stats StatsSink
	if m.cfg.Stats != nil {
		stats = m.cfg.Stats
	}

	sched := NewScheduler(SchedulerConfig{
		SessionID: id,
		Device:    device,
		Encoder:   m.cfg.Encoder,
		Analyzer:  m.cfg.Analyzer,
		History:   insights.NewHistory(),
		Stats:     stats,
		Listener:  events.Publish,
		Clock:     m.clock,
		Interval:  m.cfg.Interval,
		Logger:    m.cfg.Logger,
	})

	session := &Session{
		ID:        id,
		CreatedAt: m.clock.Now(),
		Scheduler: sched,
		Events:    events,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = sched.Dispose()
		return nil, ErrDisposed
	}
	m.sessions[id] = session
	m.mu.Unlock()

	metrics.SessionsActive.Inc()
	m.log.Info("coaching session created", "session_id", id)
	return session, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Exists(id string) bool {
	_, ok := m.Get(id)
	return ok
}

// Remove disposes the session and forgets it. Removing an unknown session
// returns shared.ErrNotFound.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return shared.ErrNotFound
	}

	err := m.dispose(ctx, session)
	m.log.Info("coaching session removed", "session_id", id)
	return err
}

func (m *Manager) dispose(ctx context.Context, session *Session) error {
	metrics.SessionsActive.Dec()

	err := session.Scheduler.Dispose()
	session.Events.Close()

	if m.cfg.Stats != nil {
		if ferr := m.cfg.Stats.Forget(ctx, session.ID); ferr != nil {
			m.log.Warn("failed to drop cached stats", "session_id", session.ID, "error", ferr)
		}
	}
	return err
}

type SessionInfo struct {
	SessionID   string       `json:"session_id"`
	Mode        Mode         `json:"mode"`
	DeviceState camera.State `json:"device_state"`
	HistorySize int          `json:"history_size"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns every session, oldest first.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		st := s.Scheduler.Status()
		infos = append(infos, SessionInfo{
			SessionID:   s.ID,
			Mode:        st.Mode,
			DeviceState: st.DeviceState,
			HistorySize: st.HistorySize,
			CreatedAt:   s.CreatedAt,
		})
	}
	return infos
}

// ReapIdle disposes sessions that have not been driven for the idle timeout.
// It returns how many were removed.
func (m *Manager) ReapIdle(ctx context.Context) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := m.clock.Now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		since, idle := s.Scheduler.IdleSince()
		if idle && since.Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		if err := m.dispose(ctx, s); err != nil {
			m.log.Warn("idle session dispose failed", "session_id", s.ID, "error", err)
		}
		m.log.Info("idle coaching session reaped", "session_id", s.ID)
	}
	return len(stale)
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) {
	if m.cfg.IdleTimeout <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(ctx)
		}
	}
}

func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, s := range sessions {
		if err := m.dispose(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
