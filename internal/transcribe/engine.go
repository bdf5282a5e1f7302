// Package transcribe loads the speech-to-text engine used by POST /transcribe
// and runs inference on a bounded worker pool.
//
// Supported backends:
//   - local: whisper.cpp command line binary with a ggml model file
//   - http: any OpenAI-compatible /v1/audio/transcriptions server
//   - openai: the OpenAI audio API
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// UnknownLanguage is reported when the engine does not detect a language.
const UnknownLanguage = "unknown"

var (
	// ErrEngineUnavailable means the engine failed to load at startup.
	ErrEngineUnavailable = errors.New("transcription engine not available")
	// ErrQueueFull means the inference queue has no free slot.
	ErrQueueFull = errors.New("transcription queue full")
	// ErrPoolStopped means the pool no longer accepts work.
	ErrPoolStopped = errors.New("transcription pool stopped")
)

// Engine is a loaded speech-to-text backend. Implementations must be safe
// for concurrent use; the handle is shared read-only after Load.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
	Name() string  // "local", "http", "openai"
	Model() string // model identifier for logs and events
}

// Result is the transcription of one audio file.
type Result struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds, 0 if unknown
}

// LanguageOrUnknown returns the detected language or UnknownLanguage.
func (r *Result) LanguageOrUnknown() string {
	if r.Language == "" {
		return UnknownLanguage
	}
	return r.Language
}

// EngineOptions configures Load.
type EngineOptions struct {
	Backend  string
	Model    string // whisper size ("small") or a ggml model path for local
	Language string // empty = auto-detect

	// local
	Bin      string
	ModelDir string

	// http
	URL       string
	SkipProbe bool

	// openai
	APIKey      string
	BaseURL     string
	OpenAIModel string

	Timeout time.Duration
	Log     zerolog.Logger
}

// Load builds the configured engine and checks that it can serve requests.
// It is called once at startup; a failure leaves the service running with
// transcription disabled.
func Load(ctx context.Context, opts EngineOptions) (Engine, error) {
	switch strings.ToLower(opts.Backend) {
	case "local", "":
		e, err := NewLocalEngine(opts.Bin, opts.ModelDir, opts.Model, opts.Language, opts.Log)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "http":
		wc, err := NewWhisperClient(opts.URL, opts.Model, opts.Language, opts.Timeout)
		if err != nil {
			return nil, err
		}
		if !opts.SkipProbe {
			if err := wc.Probe(ctx); err != nil {
				return nil, err
			}
		}
		return wc, nil
	case "openai":
		e, err := NewOpenAIEngine(opts.APIKey, opts.BaseURL, opts.OpenAIModel, opts.Language)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown whisper backend %q (supported: local, http, openai)", opts.Backend)
	}
}
