package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/innermap/innermap-backend/internal/config"
	"github.com/innermap/innermap-backend/internal/metrics"
	"github.com/rs/zerolog"
)

// ServerOptions carries the dependencies built at startup.
type ServerOptions struct {
	Transcriber Transcriber    // never nil; reports Ready()=false without an engine
	Events      EventPublisher // nil disables event publishing
	Log         zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, opts ServerOptions) *Server {
	return &Server{
		http: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      NewRouter(cfg, opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

// NewRouter builds the HTTP handler tree.
func NewRouter(cfg *config.Config, opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORSWithOrigins(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/", NewHealthHandler(opts.Transcriber).ServeHTTP)

	NewTranscribeHandler(opts.Transcriber, opts.Events, TranscribeOptions{
		TempDir:         cfg.TempDir,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		PreprocessAudio: cfg.PreprocessAudio,
		FFmpegBin:       cfg.FFmpegBin,
	}, opts.Log).Routes(r)

	NewAnalyzeHandler().Routes(r)

	r.Handle("/metrics", metrics.Handler())

	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
