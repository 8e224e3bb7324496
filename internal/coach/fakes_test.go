package coach

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eleven-am/presence-coach/internal/camera"
	"github.com/eleven-am/presence-coach/internal/insights"
	"github.com/eleven-am/presence-coach/internal/vision"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStream struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeStream) Frame(_ context.Context) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 120, G: 90, B: 60, A: 255})
		}
	}
	return img, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

type fakeSource struct {
	mu      sync.Mutex
	err     error
	opens   int
	streams []*fakeStream
}

func (s *fakeSource) Open(_ context.Context, _ string, _ camera.Constraints) (camera.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.err != nil {
		return nil, s.err
	}
	stream := &fakeStream{}
	s.streams = append(s.streams, stream)
	return stream, nil
}

func (s *fakeSource) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *fakeSource) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, st := range s.streams {
		st.mu.Lock()
		total += st.closed
		st.mu.Unlock()
	}
	return total
}

type analyzeStep struct {
	category   vision.Category
	confidence float64
	err        error
}

// fakeAnalyzer replays steps in order, then repeats the last one. When gate
// is set every call blocks until a value is received from it.
type fakeAnalyzer struct {
	mu          sync.Mutex
	steps       []analyzeStep
	calls       int
	inFlight    int
	maxInFlight int
	gate        chan struct{}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, frame *vision.CapturedFrame) (*vision.AnalysisResult, error) {
	a.mu.Lock()
	step := analyzeStep{category: vision.CategoryNeutral, confidence: 70}
	if len(a.steps) > 0 {
		idx := a.calls
		if idx >= len(a.steps) {
			idx = len(a.steps) - 1
		}
		step = a.steps[idx]
	}
	a.calls++
	a.inFlight++
	if a.inFlight > a.maxInFlight {
		a.maxInFlight = a.inFlight
	}
	gate := a.gate
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight--
		a.mu.Unlock()
	}()

	if frame == nil {
		return nil, errors.New("no frame")
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &vision.InferenceError{Message: ctx.Err().Error(), Err: ctx.Err()}
		}
	}

	if step.err != nil {
		return nil, step.err
	}
	return &vision.AnalysisResult{
		Timestamp:  time.Now(),
		Category:   step.category,
		Confidence: step.confidence,
		Details:    vision.Confidences{step.category: step.confidence},
	}, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func (a *fakeAnalyzer) peakInFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxInFlight
}

type fakeStats struct {
	mu        sync.Mutex
	err       error
	published []string
	forgotten []string
}

func (s *fakeStats) Publish(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, sessionID)
	return s.err
}

func (s *fakeStats) Forget(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, sessionID)
	return nil
}

func (s *fakeStats) publishCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) listen(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type testHarness struct {
	scheduler *Scheduler
	source    *fakeSource
	analyzer  *fakeAnalyzer
	stats     *fakeStats
	events    *eventRecorder
	clock     *clock.Mock
}

func newHarness(t *testing.T, steps ...analyzeStep) *testHarness {
	t.Helper()

	h := &testHarness{
		source:   &fakeSource{},
		analyzer: &fakeAnalyzer{steps: steps},
		stats:    &fakeStats{},
		events:   &eventRecorder{},
		clock:    clock.NewMock(),
	}

	device := camera.NewSession(camera.SessionConfig{
		ID:     "ses_test",
		Source: h.source,
		Logger: discardLogger(),
	})

	h.scheduler = NewScheduler(SchedulerConfig{
		SessionID: "ses_test",
		Device:    device,
		Encoder:   vision.NewEncoder(vision.DefaultQuality),
		Analyzer:  h.analyzer,
		History:   insights.NewHistory(),
		Stats:     h.stats,
		Listener:  h.events.listen,
		Clock:     h.clock,
		Interval:  DefaultInterval,
		Logger:    discardLogger(),
	})
	t.Cleanup(func() {
		_ = h.scheduler.Dispose()
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
