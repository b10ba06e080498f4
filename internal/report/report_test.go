package report

import (
	"errors"
	"strings"
	"testing"

	"github.com/snarg/voxnote/internal/sentiment"
)

func TestFormat_AudioUpload(t *testing.T) {
	got := Format(Report{
		Origin:     AudioUpload,
		OriginRef:  "20261014-154501PM.wav",
		Transcript: "the service is great",
		Sentiment:  sentiment.Summary{Label: sentiment.Positive, Score: 0.6, Magnitude: 0.6},
	})
	want := "Original Audio File: 20261014-154501PM.wav\n\n" +
		"Transcript:\nthe service is great\n\n" +
		"Sentiment: Positive\nScore: 0.6\nMagnitude: 0.6"
	if got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestFormat_TextInput(t *testing.T) {
	got := Format(Report{
		Origin:    TextInput,
		OriginRef: "hello there",
		Sentiment: sentiment.Summary{Label: sentiment.Neutral, Score: 0, Magnitude: 0},
	})
	want := "Original TTS Input:\nhello there\n\nSentiment: Neutral\nScore: 0\nMagnitude: 0"
	if got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestFormat_Deterministic(t *testing.T) {
	r := Report{Origin: AudioUpload, OriginRef: "a.wav", Transcript: "x",
		Sentiment: sentiment.Summary{Label: sentiment.Negative, Score: -0.123456789, Magnitude: 12.5}}
	if Format(r) != Format(r) {
		t.Error("Format is not deterministic")
	}
	if !strings.Contains(Format(r), "Score: -0.123456789\n") {
		t.Errorf("score not rendered exactly: %s", Format(r))
	}
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   Report
	}{
		{"audio", Report{Origin: AudioUpload, OriginRef: "20261014-154501PM.wav", Transcript: "the service is great",
			Sentiment: sentiment.Summary{Label: sentiment.Positive, Score: 0.6, Magnitude: 0.6}}},
		{"audio_empty_transcript", Report{Origin: AudioUpload, OriginRef: "20261014-154501PM.wav", Transcript: "",
			Sentiment: sentiment.Summary{Label: sentiment.Neutral}}},
		{"audio_multiline", Report{Origin: AudioUpload, OriginRef: "a.wav", Transcript: "line one\nline two",
			Sentiment: sentiment.Summary{Label: sentiment.Negative, Score: -0.5, Magnitude: 1}}},
		{"text", Report{Origin: TextInput, OriginRef: "hello there", Transcript: "hello there",
			Sentiment: sentiment.Summary{Label: sentiment.Neutral, Score: 0.1, Magnitude: 0.1}}},
		{"text_contains_anchor", Report{Origin: TextInput, OriginRef: "tricky\n\nSentiment: Positive", Transcript: "tricky\n\nSentiment: Positive",
			Sentiment: sentiment.Summary{Label: sentiment.Negative, Score: -0.9, Magnitude: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(Format(tt.in))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.in {
				t.Errorf("Parse(Format(r)) = %+v, want %+v", got, tt.in)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty":         "",
		"no_sentiment":  "Original Audio File: a.wav\n\nTranscript:\nhi",
		"bad_label":     "Original TTS Input:\nhi\n\nSentiment: Happy\nScore: 0\nMagnitude: 0",
		"bad_score":     "Original TTS Input:\nhi\n\nSentiment: Neutral\nScore: zero\nMagnitude: 0",
		"missing_lines": "Original TTS Input:\nhi\n\nSentiment: Neutral\nScore: 0",
		"unknown_head":  "Something else\n\nSentiment: Neutral\nScore: 0\nMagnitude: 0",
		"no_transcript": "Original Audio File: a.wav\n\nSentiment: Neutral\nScore: 0\nMagnitude: 0",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(text); !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestOriginString(t *testing.T) {
	if AudioUpload.String() != "audio_upload" || TextInput.String() != "text_input" {
		t.Errorf("unexpected origin strings %q %q", AudioUpload, TextInput)
	}
}
