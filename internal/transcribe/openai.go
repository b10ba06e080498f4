package transcribe

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient transcribes through the hosted OpenAI audio API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI transcription client. baseURL may be
// empty for the default endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.Whisper1,
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Recognize(ctx context.Context, audio []byte, opts RecognizeOpts) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: "audio.wav", // names the multipart part; Reader supplies the bytes
		Reader:   bytes.NewReader(audio),
		Language: isoLanguage(opts.LanguageCode),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return joinText(resp.Text), nil
}
