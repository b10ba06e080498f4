// Package report renders and parses the plain-text transcript reports stored
// next to each artifact.
//
// Audio upload reports look like:
//
//	Original Audio File: 20261014-154501PM.wav
//
//	Transcript:
//	the service is great
//
//	Sentiment: Positive
//	Score: 0.6
//	Magnitude: 0.6
//
// Text input reports carry the literal input instead of a filename and
// transcript section:
//
//	Original TTS Input:
//	hello there
//
//	Sentiment: Neutral
//	Score: 0
//	Magnitude: 0
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/snarg/voxnote/internal/sentiment"
)

// Origin says what a report's artifact was derived from.
type Origin int

const (
	AudioUpload Origin = iota
	TextInput
)

func (o Origin) String() string {
	switch o {
	case AudioUpload:
		return "audio_upload"
	case TextInput:
		return "text_input"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

const (
	audioHeader      = "Original Audio File: "
	textHeader       = "Original TTS Input:\n"
	transcriptHeader = "\n\nTranscript:\n"
	sentimentAnchor  = "\n\nSentiment: "
)

var ErrMalformed = errors.New("malformed report")

// Report is the content of one transcript report.
type Report struct {
	Origin Origin
	// OriginRef is the artifact filename for AudioUpload, or the literal
	// input text for TextInput.
	OriginRef  string
	Transcript string
	Sentiment  sentiment.Summary
}

// Format renders r. The output depends only on r.
func Format(r Report) string {
	var b strings.Builder
	switch r.Origin {
	case TextInput:
		b.WriteString(textHeader)
		b.WriteString(r.OriginRef)
	default:
		b.WriteString(audioHeader)
		b.WriteString(r.OriginRef)
		b.WriteString(transcriptHeader)
		b.WriteString(r.Transcript)
	}
	b.WriteString("\n\n")
	b.WriteString(FormatSentiment(r.Sentiment))
	return b.String()
}

// FormatSentiment renders the three-line sentiment block.
func FormatSentiment(s sentiment.Summary) string {
	return "Sentiment: " + string(s.Label) +
		"\nScore: " + sentiment.FormatFloat(s.Score) +
		"\nMagnitude: " + sentiment.FormatFloat(s.Magnitude)
}

// Parse recovers a Report from text produced by Format. For TextInput
// reports Transcript is set to the input text.
func Parse(text string) (Report, error) {
	var r Report

	cut := strings.LastIndex(text, sentimentAnchor)
	if cut < 0 {
		return r, fmt.Errorf("%w: no sentiment block", ErrMalformed)
	}
	head, tail := text[:cut], text[cut+2:]

	s, err := parseSentiment(tail)
	if err != nil {
		return r, err
	}
	r.Sentiment = s

	switch {
	case strings.HasPrefix(head, textHeader):
		r.Origin = TextInput
		r.OriginRef = strings.TrimPrefix(head, textHeader)
		r.Transcript = r.OriginRef
	case strings.HasPrefix(head, audioHeader):
		r.Origin = AudioUpload
		rest := strings.TrimPrefix(head, audioHeader)
		i := strings.Index(rest, transcriptHeader)
		if i < 0 {
			return r, fmt.Errorf("%w: no transcript section", ErrMalformed)
		}
		r.OriginRef = rest[:i]
		r.Transcript = rest[i+len(transcriptHeader):]
	default:
		return r, fmt.Errorf("%w: unknown header", ErrMalformed)
	}
	return r, nil
}

func parseSentiment(block string) (sentiment.Summary, error) {
	var s sentiment.Summary
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	if len(lines) != 3 {
		return s, fmt.Errorf("%w: sentiment block has %d lines", ErrMalformed, len(lines))
	}

	label, ok := sentiment.ParseLabel(strings.TrimPrefix(lines[0], "Sentiment: "))
	if !ok || !strings.HasPrefix(lines[0], "Sentiment: ") {
		return s, fmt.Errorf("%w: bad label line %q", ErrMalformed, lines[0])
	}
	score, err := parseField(lines[1], "Score: ")
	if err != nil {
		return s, err
	}
	magnitude, err := parseField(lines[2], "Magnitude: ")
	if err != nil {
		return s, err
	}
	return sentiment.Summary{Label: label, Score: score, Magnitude: magnitude}, nil
}

func parseField(line, prefix string) (float64, error) {
	if !strings.HasPrefix(line, prefix) {
		return 0, fmt.Errorf("%w: expected %q line, got %q", ErrMalformed, strings.TrimSpace(prefix), line)
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(line, prefix), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}
