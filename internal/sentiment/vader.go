package sentiment

import (
	"context"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

var (
	linkPattern     = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// VaderAnalyzer scores text locally with the VADER lexicon. No network calls.
type VaderAnalyzer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderAnalyzer) Name() string { return "vader" }

// Analyze returns the compound score of the whole text as Score, and the sum
// of absolute per-sentence compound scores as Magnitude.
func (v *VaderAnalyzer) Analyze(ctx context.Context, text string) (Score, error) {
	if err := ctx.Err(); err != nil {
		return Score{}, err
	}
	plain := PlainText(text)
	if plain == "" {
		return Score{}, nil
	}

	score := clamp(v.analyzer.PolarityScores(plain).Compound)

	var magnitude float64
	for _, s := range sentencePattern.FindAllString(plain, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		magnitude += math.Abs(v.analyzer.PolarityScores(s).Compound)
	}

	return Score{Score: score, Magnitude: magnitude}, nil
}

// RemoveLinks keeps link text and drops bare URLs.
func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	return urlPattern.ReplaceAllString(input, "")
}

// PlainText strips markdown formatting and links so only prose is scored.
func PlainText(input string) string {
	input = RemoveLinks(input)
	rendered := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := html.UnescapeString(tagPattern.ReplaceAllString(string(rendered), " "))
	return strings.Join(strings.Fields(plain), " ")
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
