package api

import (
	"net/http"
)

const healthMessage = "Innermap Backend Çalışıyor"

// Engine status values reported by GET /.
const (
	WhisperReady = "Ready"
	WhisperError = "Error"
)

type HealthResponse struct {
	Message       string `json:"message"`
	WhisperStatus string `json:"whisper_status"`
}

// Readiness reports whether the transcription engine loaded.
type Readiness interface {
	Ready() bool
}

type HealthHandler struct {
	engine Readiness
}

func NewHealthHandler(engine Readiness) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// ServeHTTP handles GET /. It always answers 200; only whisper_status varies.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := WhisperError
	if h.engine != nil && h.engine.Ready() {
		status = WhisperReady
	}
	WriteJSON(w, http.StatusOK, HealthResponse{
		Message:       healthMessage,
		WhisperStatus: status,
	})
}
