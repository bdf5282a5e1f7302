package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/innermap/innermap-backend/internal/audio"
	"github.com/innermap/innermap-backend/internal/metrics"
	"github.com/innermap/innermap-backend/internal/transcribe"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const (
	detailEngineUnavailable = "Whisper model servisi hazır değil. Lütfen logları kontrol edin."
	detailQueueFull         = "Transkripsiyon kuyruğu dolu. Lütfen daha sonra tekrar deneyin."
	detailTooLarge          = "Yüklenen dosya çok büyük."
	detailServerErrorPrefix = "Sunucu hatası: "
)

// Transcriber runs inference on a spooled audio file. Ready is false when
// the engine failed to load at startup.
type Transcriber interface {
	Ready() bool
	Engine() transcribe.Engine
	Transcribe(ctx context.Context, audioPath string) (*transcribe.Result, error)
}

// EventPublisher receives a TranscriptionEvent after each successful transcription.
type EventPublisher interface {
	Publish(v any) error
}

type TranscribeResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

// TranscriptionEvent is published after a successful transcription.
type TranscriptionEvent struct {
	RequestID  string    `json:"request_id,omitempty"`
	Filename   string    `json:"filename"`
	Transcript string    `json:"transcript"`
	Language   string    `json:"language"`
	Engine     string    `json:"engine"`
	Model      string    `json:"model"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// TranscribeOptions configures the transcribe handler.
type TranscribeOptions struct {
	TempDir         string
	MaxUploadBytes  int64
	PreprocessAudio bool
	FFmpegBin       string
}

type TranscribeHandler struct {
	transcriber Transcriber
	events      EventPublisher
	opts        TranscribeOptions
	log         zerolog.Logger
}

// NewTranscribeHandler creates the transcribe handler. events may be nil.
func NewTranscribeHandler(t Transcriber, events EventPublisher, opts TranscribeOptions, log zerolog.Logger) *TranscribeHandler {
	return &TranscribeHandler{
		transcriber: t,
		events:      events,
		opts:        opts,
		log:         log.With().Str("handler", "transcribe").Logger(),
	}
}

// Routes registers the transcription endpoint.
func (h *TranscribeHandler) Routes(r chi.Router) {
	r.Post("/transcribe", h.Transcribe)
}

// Transcribe handles POST /transcribe with a multipart "file" field.
// Every temp file created for the request is gone when this returns.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		if isBodyTooLarge(err) {
			WriteError(w, http.StatusRequestEntityTooLarge, detailTooLarge)
			return
		}
		WriteValidationError(w, missingField("body", "file"))
		return
	}
	defer file.Close()

	if h.transcriber == nil || !h.transcriber.Ready() {
		metrics.TranscriptionsTotal.WithLabelValues("rejected").Inc()
		WriteError(w, http.StatusServiceUnavailable, detailEngineUnavailable)
		return
	}

	start := time.Now()

	path, cleanup, err := audio.Spool(h.opts.TempDir, header.Filename, file)
	if err != nil {
		h.fail(w, log, err)
		return
	}
	defer cleanup()
	log.Info().Str("path", path).Int64("size", header.Size).Msg("upload saved")

	input := path
	if h.opts.PreprocessAudio {
		processed, done, err := audio.Preprocess(r.Context(), h.opts.FFmpegBin, path)
		if err != nil {
			log.Warn().Err(err).Msg("preprocessing failed, using original audio")
		} else {
			input = processed
			defer done()
		}
	}

	log.Info().Msg("transcription started")
	res, err := h.transcriber.Transcribe(r.Context(), input)
	metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, transcribe.ErrQueueFull):
			metrics.TranscriptionsTotal.WithLabelValues("rejected").Inc()
			WriteError(w, http.StatusServiceUnavailable, detailQueueFull)
		case errors.Is(err, transcribe.ErrEngineUnavailable), errors.Is(err, transcribe.ErrPoolStopped):
			metrics.TranscriptionsTotal.WithLabelValues("rejected").Inc()
			WriteError(w, http.StatusServiceUnavailable, detailEngineUnavailable)
		default:
			h.fail(w, log, err)
		}
		return
	}

	metrics.TranscriptionsTotal.WithLabelValues("success").Inc()
	log.Info().Str("transcript", truncate(res.Text, 50)).Msg("transcription complete")

	lang := res.LanguageOrUnknown()
	WriteJSON(w, http.StatusOK, TranscribeResponse{
		Success:    true,
		Transcript: res.Text,
		Language:   lang,
	})

	h.publish(r, header.Filename, res.Text, lang, time.Since(start))
}

func (h *TranscribeHandler) fail(w http.ResponseWriter, log *zerolog.Logger, err error) {
	metrics.TranscriptionsTotal.WithLabelValues("error").Inc()
	log.Error().Err(err).Msg("transcription error")
	WriteError(w, http.StatusInternalServerError, detailServerErrorPrefix+err.Error())
}

func (h *TranscribeHandler) publish(r *http.Request, filename, text, lang string, dur time.Duration) {
	if h.events == nil {
		return
	}
	ev := TranscriptionEvent{
		RequestID:  RequestIDFromContext(r.Context()),
		Filename:   filename,
		Transcript: text,
		Language:   lang,
		DurationMs: dur.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if eng := h.transcriber.Engine(); eng != nil {
		ev.Engine = eng.Name()
		ev.Model = eng.Model()
	}
	if err := h.events.Publish(ev); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		h.log.Debug().Err(err).Msg("transcription event not published")
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
}

func isBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
