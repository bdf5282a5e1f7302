package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/innermap/innermap-backend/internal/analysis"
	"github.com/innermap/innermap-backend/internal/metrics"
	"github.com/rs/zerolog/hlog"
)

// maxAnalyzeBody bounds the JSON body accepted by /analyze_text. Larger
// bodies are answered with 413.
const maxAnalyzeBody = 10 << 20

const detailTextTooLarge = "Gönderilen metin çok büyük."

type AnalyzeHandler struct{}

func NewAnalyzeHandler() *AnalyzeHandler {
	return &AnalyzeHandler{}
}

// Routes registers the analysis endpoint.
func (h *AnalyzeHandler) Routes(r chi.Router) {
	r.Post("/analyze_text", h.Analyze)
}

// Analyze handles POST /analyze_text.
// Short input is not an error: it answers 200 with success=false.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBody)
	}
	text, issue, err := decodeTextRequest(r)
	if err != nil {
		if isBodyTooLarge(err) {
			WriteError(w, http.StatusRequestEntityTooLarge, detailTextTooLarge)
			return
		}
		WriteValidationError(w, ValidationIssue{Type: IssueJSONInvalid, Loc: []string{"body"}, Msg: "JSON decode error"})
		return
	}
	if issue != nil {
		WriteValidationError(w, *issue)
		return
	}

	res := analysis.Analyze(text)
	if !res.Success {
		metrics.AnalysesTotal.WithLabelValues("rejected").Inc()
		WriteJSON(w, http.StatusOK, res)
		return
	}

	hlog.FromRequest(r).Info().Str("text", truncate(text, 50)).Msg("text received for analysis")
	metrics.AnalysesTotal.WithLabelValues("accepted").Inc()
	WriteJSON(w, http.StatusOK, res)
}

// decodeTextRequest extracts the required string field "text" from a JSON
// object body. A non-nil error means the body could not be read.
func decodeTextRequest(r *http.Request) (string, *ValidationIssue, error) {
	if r.Body == nil {
		issue := missingField("body")
		return "", &issue, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		issue := missingField("body")
		return "", &issue, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return "", &ValidationIssue{Type: IssueJSONInvalid, Loc: []string{"body"}, Msg: "JSON decode error"}, nil
		}
		return "", &ValidationIssue{Type: IssueDictType, Loc: []string{"body"}, Msg: "Input should be a valid dictionary or object to extract fields from"}, nil
	}
	// JSON null decodes to a nil map
	if fields == nil {
		issue := missingField("body")
		return "", &issue, nil
	}

	val, ok := fields["text"]
	if !ok {
		issue := missingField("body", "text")
		return "", &issue, nil
	}
	var text string
	if bytes.Equal(bytes.TrimSpace(val), []byte("null")) || json.Unmarshal(val, &text) != nil {
		return "", &ValidationIssue{Type: IssueStringType, Loc: []string{"body", "text"}, Msg: "Input should be a valid string"}, nil
	}
	return text, nil, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
