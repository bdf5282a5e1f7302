package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// LocalEngine runs the whisper.cpp command line binary against a ggml model.
type LocalEngine struct {
	bin       string
	modelPath string
	model     string
	language  string
	log       zerolog.Logger
}

// whisper.cpp -oj output
type whisperCPPOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// NewLocalEngine resolves the binary and model file. model is either a
// whisper size ("small"), resolved to modelDir/ggml-<size>.bin, or a path
// to a .bin file.
func NewLocalEngine(bin, modelDir, model, language string, log zerolog.Logger) (*LocalEngine, error) {
	if bin == "" {
		bin = "whisper-cli"
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("whisper binary %q not found: %w", bin, err)
	}

	modelPath := ModelPath(modelDir, model)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model %q: %w", modelPath, err)
	}

	log.Debug().Str("bin", resolved).Str("model_path", modelPath).Msg("local whisper engine resolved")
	return &LocalEngine{
		bin:       resolved,
		modelPath: modelPath,
		model:     model,
		language:  language,
		log:       log,
	}, nil
}

// ModelPath maps a model name to its ggml file under modelDir.
func ModelPath(modelDir, model string) string {
	if strings.HasSuffix(model, ".bin") || strings.ContainsRune(model, os.PathSeparator) {
		return model
	}
	return filepath.Join(modelDir, "ggml-"+model+".bin")
}

func (e *LocalEngine) Name() string  { return "local" }
func (e *LocalEngine) Model() string { return e.model }

// Transcribe runs whisper.cpp with JSON output into a private temp directory.
func (e *LocalEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	outDir, err := os.MkdirTemp("", "innermap-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	lang := e.language
	if lang == "" {
		lang = "auto"
	}
	outPrefix := filepath.Join(outDir, "out")

	cmd := exec.CommandContext(ctx, e.bin,
		"-m", e.modelPath,
		"-f", audioPath,
		"-l", lang,
		"-oj",
		"-of", outPrefix,
		"-np",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("whisper.cpp: %w", ctxErr)
		}
		return nil, fmt.Errorf("whisper.cpp: %w: %s", err, lastLine(stderr.String()))
	}

	raw, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, fmt.Errorf("read whisper.cpp output: %w", err)
	}
	return parseWhisperCPP(raw)
}

func parseWhisperCPP(raw []byte) (*Result, error) {
	var out whisperCPPOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode whisper.cpp output: %w", err)
	}

	var b strings.Builder
	var endMs int64
	for _, seg := range out.Transcription {
		b.WriteString(seg.Text)
		if seg.Offsets.To > endMs {
			endMs = seg.Offsets.To
		}
	}

	return &Result{
		Text:     b.String(),
		Language: out.Result.Language,
		Duration: float64(endMs) / 1000,
	}, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
