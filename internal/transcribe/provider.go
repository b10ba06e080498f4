package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/snarg/voxnote/internal/config"
)

// Transcriber is the interface for speech-to-text backends.
//
// No detected speech is not an error: Recognize returns "" and a nil error.
type Transcriber interface {
	Recognize(ctx context.Context, audio []byte, opts RecognizeOpts) (string, error)
	Name() string // "whisper", "openai"
}

// RecognizeOpts are per-request recognition options.
type RecognizeOpts struct {
	LanguageCode string // BCP-47, e.g. "en-US"
	ChannelCount int    // 0 = backend default
}

// New builds the Transcriber selected by cfg.STTProvider.
func New(cfg *config.Config) (Transcriber, error) {
	switch cfg.STTProvider {
	case "whisper":
		return NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperTimeout), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STTProvider)
	}
}

// isoLanguage reduces a BCP-47 tag to the ISO-639-1 code Whisper-style APIs expect.
func isoLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "en"
	}
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}

// joinText normalizes the recognized text; whitespace-only results count as no speech.
func joinText(text string) string {
	return strings.TrimSpace(text)
}
