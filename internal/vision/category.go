package vision

import "strings"

type Category string

const (
	CategoryHappy     Category = "happy"
	CategorySad       Category = "sad"
	CategoryAngry     Category = "angry"
	CategorySurprised Category = "surprised"
	CategoryFear      Category = "fear"
	CategoryDisgusted Category = "disgusted"
	CategoryNeutral   Category = "neutral"
)

// Categories lists every category the inference service may report, in display order.
var Categories = []Category{
	CategoryHappy,
	CategorySad,
	CategoryAngry,
	CategorySurprised,
	CategoryFear,
	CategoryDisgusted,
	CategoryNeutral,
}

// Labels produced by the DeepFace-based detector that differ from ours.
var categoryAliases = map[string]Category{
	"surprise": CategorySurprised,
	"disgust":  CategoryDisgusted,
}

func ParseCategory(s string) (Category, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := categoryAliases[name]; ok {
		return alias, true
	}
	for _, c := range Categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string {
	return string(c)
}

// Confidences maps every category to a confidence in [0,100]. Values are
// independent per category and need not sum to 100.
type Confidences map[Category]float64

func (c Confidences) Max() float64 {
	var best float64
	for _, v := range c {
		if v > best {
			best = v
		}
	}
	return best
}
