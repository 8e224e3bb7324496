package coach

import (
	"sync"
	"time"

	"github.com/eleven-am/presence-coach/internal/insights"
	"github.com/eleven-am/presence-coach/internal/vision"
)

type EventType string

const (
	EventResult EventType = "result"
	EventNotice EventType = "notice"
	EventMode   EventType = "mode"
)

// Notice is a transient, user-visible message about a failed step.
type Notice struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Event struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"session_id"`
	Timestamp time.Time              `json:"timestamp"`
	Mode      Mode                   `json:"mode,omitempty"`
	Result    *vision.AnalysisResult `json:"result,omitempty"`
	Insights  *insights.Insights     `json:"insights,omitempty"`
	Notice    *Notice                `json:"notice,omitempty"`
}

// Listener receives scheduler events. It is called from scheduler goroutines
// and must not block.
type Listener func(Event)

// Broadcaster fans events out to subscribers. A subscriber whose buffer is
// full misses the event.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a func that ends the subscription.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
