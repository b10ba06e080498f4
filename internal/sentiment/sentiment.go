package sentiment

import (
	"context"
	"strconv"
)

// Score is the raw analyzer output: score in [-1, 1], magnitude >= 0.
type Score struct {
	Score     float64
	Magnitude float64
}

// Analyzer scores the overall sentiment of a text. Empty text must be
// accepted and should score near zero.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Score, error)
	Name() string
}

type Label string

const (
	Positive Label = "Positive"
	Neutral  Label = "Neutral"
	Negative Label = "Negative"
)

// Label thresholds. Fixed: not configurable.
const (
	positiveAbove = 0.2
	negativeBelow = -0.2
)

// LabelFor maps a score to its label: > 0.2 Positive, < -0.2 Negative, else Neutral.
func LabelFor(score float64) Label {
	switch {
	case score > positiveAbove:
		return Positive
	case score < negativeBelow:
		return Negative
	default:
		return Neutral
	}
}

// ParseLabel accepts exactly one of the three label strings.
func ParseLabel(s string) (Label, bool) {
	switch Label(s) {
	case Positive, Neutral, Negative:
		return Label(s), true
	}
	return "", false
}

// Summary is the labelled result attached to a transcript.
type Summary struct {
	Label     Label   `json:"label"`
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

// Summarize labels a raw score.
func Summarize(s Score) Summary {
	return Summary{Label: LabelFor(s.Score), Score: s.Score, Magnitude: s.Magnitude}
}

// FormatFloat renders a score without locale or exponent surprises.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
