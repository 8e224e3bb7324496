package insights

import (
	"sync"

	"github.com/eleven-am/presence-coach/internal/vision"
)

const (
	HistoryCapacity = 10
	SnapshotSize    = 8
)

// History is a fixed-capacity ring of analysis results, oldest first. Once
// full, each append evicts the oldest entry.
type History struct {
	mu    sync.RWMutex
	buf   []vision.AnalysisResult
	head  int
	count int
}

func NewHistory() *History {
	return &History{buf: make([]vision.AnalysisResult, HistoryCapacity)}
}

func (h *History) Append(r vision.AnalysisResult) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tail := (h.head + h.count) % len(h.buf)
	h.buf[tail] = r
	if h.count < len(h.buf) {
		h.count++
		return
	}
	h.head = (h.head + 1) % len(h.buf)
}

// RecentWindow returns the last min(n, Len()) results in chronological order.
func (h *History) RecentWindow(n int) []vision.AnalysisResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastLocked(n)
}

// Snapshot returns the last eight results for display.
func (h *History) Snapshot() []vision.AnalysisResult {
	return h.RecentWindow(SnapshotSize)
}

func (h *History) lastLocked(n int) []vision.AnalysisResult {
	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return []vision.AnalysisResult{}
	}

	out := make([]vision.AnalysisResult, n)
	start := h.head + h.count - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *History) Capacity() int {
	return len(h.buf)
}
