package coach

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	eventBuffer    = 128
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// eventStream pushes one session's events to a websocket viewer. Viewers
// only listen; anything they send is read and dropped.
type eventStream struct {
	ws     *websocket.Conn
	events <-chan Event
	logger *slog.Logger
	done   chan struct{}
	once   sync.Once
}

func newEventStream(ws *websocket.Conn, events <-chan Event, logger *slog.Logger) *eventStream {
	return &eventStream{
		ws:     ws,
		events: events,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *eventStream) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *eventStream) readPump() {
	defer s.close()

	s.ws.SetReadLimit(maxMessageSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("event stream read error", "error", err)
			}
			return
		}
	}
}

func (s *eventStream) write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal event", "error", err)
		return nil
	}
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.TextMessage, data)
}

func (s *eventStream) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case ev, ok := <-s.events:
			if !ok {
				_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = s.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := s.write(ev); err != nil {
				s.logger.Debug("event stream write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Events godoc
// @Summary      Stream session events
// @Description  WebSocket. Sends the current mode, then every result, notice and mode change as JSON.
// @Tags         sessions
// @Param        id   path  string  true  "Session ID"
// @Success      101
// @Failure      404  {object}  shared.APIError
// @Router       /sessions/{id}/events [get]
func (h *Handler) Events(c echo.Context) error {
	session, err := h.session(c)
	if err != nil {
		return err
	}

	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return err
	}
	defer ws.Close()

	events, unsubscribe := session.Events.Subscribe(eventBuffer)
	defer unsubscribe()

	logger := h.logger.With("session_id", session.ID)
	stream := newEventStream(ws, events, logger)

	if err := stream.write(Event{
		Type:      EventMode,
		SessionID: session.ID,
		Timestamp: time.Now(),
		Mode:      session.Scheduler.Mode(),
		Insights:  session.Scheduler.Insights(),
	}); err != nil {
		return nil
	}

	logger.Info("event viewer connected")

	go stream.readPump()
	stream.writePump(c.Request().Context())

	logger.Info("event viewer disconnected")
	return nil
}
