package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint
// such as speaches or faster-whisper-server.
type WhisperClient struct {
	url      string
	model    string
	language string
	client   *http.Client
}

// whisperResponse is the verbose_json response body.
type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// NewWhisperClient creates a Whisper HTTP client. rawURL must be an absolute
// http(s) URL. A zero timeout means no client-side limit beyond the request context.
func NewWhisperClient(rawURL, model, language string, timeout time.Duration) (*WhisperClient, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse whisper url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("whisper url %q must be an absolute http(s) URL", rawURL)
	}
	return &WhisperClient{
		url:      rawURL,
		model:    model,
		language: language,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// isWhisperSize reports whether model is a bare whisper size such as "small"
// or "large-v3" rather than a server model id like
// "Systran/faster-whisper-small". Bare sizes are left to the server default.
func isWhisperSize(model string) bool {
	m := strings.TrimSuffix(strings.ToLower(model), ".en")
	switch m {
	case "tiny", "base", "small", "medium", "large", "turbo":
		return true
	}
	return strings.HasPrefix(m, "large-v")
}

func (wc *WhisperClient) Name() string  { return "http" }
func (wc *WhisperClient) Model() string { return wc.model }

// Probe checks that the server answers HTTP at all. Any status code counts
// as reachable; only transport errors fail.
func (wc *WhisperClient) Probe(ctx context.Context) error {
	u, _ := url.Parse(wc.url)
	root := u.Scheme + "://" + u.Host + "/"

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return fmt.Errorf("create probe request: %w", err)
	}
	resp, err := wc.client.Do(req)
	if err != nil {
		return fmt.Errorf("whisper server unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Transcribe sends an audio file as multipart/form-data and returns the result.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if wc.model != "" && !isWhisperSize(wc.model) {
		w.WriteField("model", wc.model)
	}
	if wc.language != "" {
		w.WriteField("language", wc.language)
	}
	// verbose_json carries the detected language
	w.WriteField("response_format", "verbose_json")
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := wc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisper API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result whisperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Result{
		Text:     result.Text,
		Language: result.Language,
		Duration: result.Duration,
	}, nil
}
