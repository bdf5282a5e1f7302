package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ffmpegOnce  sync.Once
	ffmpegFound map[string]bool
	ffmpegMu    sync.Mutex
)

// CheckFFmpeg reports whether bin resolves in PATH. Results are cached per binary.
func CheckFFmpeg(bin string) bool {
	ffmpegOnce.Do(func() { ffmpegFound = make(map[string]bool) })

	ffmpegMu.Lock()
	defer ffmpegMu.Unlock()
	if ok, seen := ffmpegFound[bin]; seen {
		return ok
	}
	_, err := exec.LookPath(bin)
	ffmpegFound[bin] = err == nil
	return err == nil
}

// Preprocess converts inputPath to 16 kHz mono 16-bit PCM WAV with ffmpeg,
// the format whisper.cpp expects. Returns the converted path and a cleanup
// function. If ffmpeg is unavailable, returns the original path with a
// no-op cleanup.
func Preprocess(ctx context.Context, ffmpegBin, inputPath string) (string, func(), error) {
	noop := func() {}

	if !CheckFFmpeg(ffmpegBin) {
		return inputPath, noop, nil
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outPath := filepath.Join(filepath.Dir(inputPath), fmt.Sprintf("%s-%s.wav", base, uuid.NewString()[:8]))

	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-nostdin",
		"-loglevel", "error",
		"-i", inputPath,
		"-y",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return inputPath, noop, fmt.Errorf("ffmpeg convert: %w: %s", err, strings.TrimSpace(string(out)))
	}

	cleanup := func() {
		os.Remove(outPath)
	}
	return outPath, cleanup, nil
}
