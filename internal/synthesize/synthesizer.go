// Package synthesize converts text to speech audio.
package synthesize

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// VoiceGender selects the voice family.
type VoiceGender int

const (
	VoiceNeutral VoiceGender = iota
	VoiceFemale
	VoiceMale
)

// Encoding is the requested output audio encoding.
type Encoding string

const (
	// Linear16 is uncompressed 16-bit PCM in a WAV container.
	Linear16 Encoding = "LINEAR16"
	MP3      Encoding = "MP3"
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	LanguageCode string // BCP-47, e.g. "en-US"
	VoiceGender  VoiceGender
	Encoding     Encoding
}

// Synthesizer converts text to audio bytes in the requested encoding.
// Callers must not pass blank text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) ([]byte, error)
	Name() string
}

// OpenAIClient synthesizes speech through the OpenAI audio API.
type OpenAIClient struct {
	client *openai.Client
	model  openai.SpeechModel
}

// NewOpenAIClient creates an OpenAI TTS client. baseURL may be empty for the
// default endpoint; model defaults to tts-1.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	m := openai.TTSModel1
	if model != "" {
		m = openai.SpeechModel(model)
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: m}
}

func (c *OpenAIClient) Name() string { return "openai" }

// Synthesize requests speech audio. The language is inferred by the model
// from the text itself, so LanguageCode is informational only.
func (c *OpenAIClient) Synthesize(ctx context.Context, text string, opts SynthesizeOpts) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          voiceFor(opts.VoiceGender),
		ResponseFormat: formatFor(opts.Encoding),
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech: empty audio response")
	}
	return audio, nil
}

func voiceFor(g VoiceGender) openai.SpeechVoice {
	switch g {
	case VoiceFemale:
		return openai.VoiceNova
	case VoiceMale:
		return openai.VoiceOnyx
	default:
		return openai.VoiceAlloy
	}
}

func formatFor(e Encoding) openai.SpeechResponseFormat {
	if e == MP3 {
		return openai.SpeechResponseFormatMp3
	}
	return openai.SpeechResponseFormatWav
}
