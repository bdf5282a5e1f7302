package transcribe

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIEngine transcribes through the OpenAI audio API.
type OpenAIEngine struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAIEngine creates an OpenAI-backed engine. baseURL may point at any
// compatible gateway; empty uses the OpenAI default.
func NewOpenAIEngine(apiKey, baseURL, model, language string) (*OpenAIEngine, error) {
	if apiKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	if model == "" {
		model = openai.Whisper1
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEngine{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		language: language,
	}, nil
}

func (e *OpenAIEngine) Name() string  { return "openai" }
func (e *OpenAIEngine) Model() string { return e.model }

func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: audioPath,
		Language: e.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return &Result{
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}
