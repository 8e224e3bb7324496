package insights

import (
	"math"

	"github.com/eleven-am/presence-coach/internal/vision"
)

const (
	// MinEntries is the warm-up: no insights are derived from fewer results.
	MinEntries = 3
	WindowSize = 5
)

const (
	AffirmingMessage = "You look composed and engaged. Keep this presence through your answers."
	CoachingMessage  = "Try relaxing your face, take a slow breath and keep a gentle, steady expression."
)

type Stability string

const (
	StabilityBuilding Stability = "building"
	StabilityGood     Stability = "good"
)

type Insights struct {
	DominantCategory  vision.Category `json:"dominant_category"`
	AverageConfidence int             `json:"average_confidence"`
	Stability         Stability       `json:"stability"`
	Recommendation    string          `json:"recommendation"`
	WindowSize        int             `json:"window_size"`
}

// Compute derives insights from the most recent results in h. It returns nil
// until h holds at least MinEntries results.
func Compute(h *History) *Insights {
	if h == nil || h.Len() < MinEntries {
		return nil
	}
	return FromWindow(h.RecentWindow(WindowSize))
}

// FromWindow aggregates an oldest-first window of results.
func FromWindow(window []vision.AnalysisResult) *Insights {
	if len(window) == 0 {
		return nil
	}

	dominant := dominantCategory(window)

	var sum float64
	for _, r := range window {
		sum += r.Confidence
	}

	stability := StabilityBuilding
	if len(window) >= MinEntries {
		stability = StabilityGood
	}

	recommendation := CoachingMessage
	if IsComposed(dominant) {
		recommendation = AffirmingMessage
	}

	return &Insights{
		DominantCategory:  dominant,
		AverageConfidence: int(math.Round(sum / float64(len(window)))),
		Stability:         stability,
		Recommendation:    recommendation,
		WindowSize:        len(window),
	}
}

// dominantCategory picks the most frequent category. Ties go to the tied
// category seen most recently.
func dominantCategory(window []vision.AnalysisResult) vision.Category {
	counts := make(map[vision.Category]int, len(window))
	lastSeen := make(map[vision.Category]int, len(window))
	for i, r := range window {
		counts[r.Category]++
		lastSeen[r.Category] = i
	}

	var best vision.Category
	bestCount, bestSeen := -1, -1
	for c, n := range counts {
		if n > bestCount || (n == bestCount && lastSeen[c] > bestSeen) {
			best, bestCount, bestSeen = c, n, lastSeen[c]
		}
	}
	return best
}

func IsComposed(c vision.Category) bool {
	return c == vision.CategoryNeutral || c == vision.CategoryHappy
}
