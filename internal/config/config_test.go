package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"WHISPER_URL":  "http://localhost:9000/v1/audio/transcriptions",
		"CORS_ORIGINS": "https://app.example.com, https://admin.example.com",
	})
	defer cleanup()

	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Host != "0.0.0.0" {
			t.Errorf("Host = %q, want 0.0.0.0", cfg.Host)
		}
		if cfg.Port != 8000 {
			t.Errorf("Port = %d, want 8000", cfg.Port)
		}
		if cfg.Addr() != "0.0.0.0:8000" {
			t.Errorf("Addr = %q, want 0.0.0.0:8000", cfg.Addr())
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.Whisper.Backend != "local" {
			t.Errorf("Whisper.Backend = %q, want local", cfg.Whisper.Backend)
		}
		if cfg.Whisper.Model != "small" {
			t.Errorf("Whisper.Model = %q, want small", cfg.Whisper.Model)
		}
		if !cfg.PreprocessAudio {
			t.Error("PreprocessAudio should default to true")
		}
		if cfg.FFmpegBin != "ffmpeg" {
			t.Errorf("FFmpegBin = %q, want ffmpeg", cfg.FFmpegBin)
		}
		if cfg.Workers != 1 {
			t.Errorf("Workers = %d, want 1", cfg.Workers)
		}
		if cfg.QueueSize != 16 {
			t.Errorf("QueueSize = %d, want 16", cfg.QueueSize)
		}
		if cfg.TranscribeTimeout != 10*time.Minute {
			t.Errorf("TranscribeTimeout = %v, want 10m", cfg.TranscribeTimeout)
		}
		if cfg.MaxUploadBytes() != 100<<20 {
			t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes(), 100<<20)
		}
		if cfg.TempDir == "" {
			t.Error("TempDir should default to the OS temp dir")
		}
		if cfg.MQTT.Enabled() {
			t.Error("MQTT should be disabled without a broker URL")
		}
		if cfg.MQTT.Topic != "innermap/transcriptions" {
			t.Errorf("MQTT.Topic = %q, want innermap/transcriptions", cfg.MQTT.Topic)
		}
	})

	t.Run("env_vars_read", func(t *testing.T) {
		cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Whisper.URL != "http://localhost:9000/v1/audio/transcriptions" {
			t.Errorf("Whisper.URL = %q", cfg.Whisper.URL)
		}
		if len(cfg.CORSOrigins) != 2 {
			t.Fatalf("CORSOrigins = %v, want 2 entries", cfg.CORSOrigins)
		}
	})

	t.Run("cli_overrides_take_priority", func(t *testing.T) {
		cfg, err := Load(Overrides{
			EnvFile:  "nonexistent.env",
			Host:     "127.0.0.1",
			Port:     9090,
			LogLevel: "debug",
			Backend:  "http",
			Model:    "medium",
		})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Addr() != "127.0.0.1:9090" {
			t.Errorf("Addr = %q, want 127.0.0.1:9090", cfg.Addr())
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		if cfg.Whisper.Backend != "http" {
			t.Errorf("Whisper.Backend = %q, want http", cfg.Whisper.Backend)
		}
		if cfg.Whisper.Model != "medium" {
			t.Errorf("Whisper.Model = %q, want medium", cfg.Whisper.Model)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{})
	defer cleanup()
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("MQTT_BROKER_URL")

	path := filepath.Join(t.TempDir(), "test.env")
	content := "PORT=8123\nMQTT_BROKER_URL=tcp://broker:1883\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Overrides{EnvFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8123 {
		t.Errorf("Port = %d, want 8123", cfg.Port)
	}
	if !cfg.MQTT.Enabled() {
		t.Error("MQTT should be enabled from .env")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{"PORT": "not-a-number"})
	defer cleanup()

	_, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err == nil {
		t.Error("expected error for non-numeric PORT")
	}
}

func TestLoadClampsWorkers(t *testing.T) {
	cleanup := setEnvs(t, map[string]string{
		"TRANSCRIBE_WORKERS":    "0",
		"TRANSCRIBE_QUEUE_SIZE": "-3",
	})
	defer cleanup()

	cfg, err := Load(Overrides{EnvFile: "nonexistent.env"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
	if cfg.QueueSize != 0 {
		t.Errorf("QueueSize = %d, want 0", cfg.QueueSize)
	}
}

// setEnvs sets environment variables and returns a cleanup function.
func setEnvs(t *testing.T, envs map[string]string) func() {
	t.Helper()
	originals := make(map[string]string)
	unset := make([]string, 0)

	for k, v := range envs {
		if orig, ok := os.LookupEnv(k); ok {
			originals[k] = orig
		} else {
			unset = append(unset, k)
		}
		os.Setenv(k, v)
	}

	return func() {
		for k, v := range originals {
			os.Setenv(k, v)
		}
		for _, k := range unset {
			os.Unsetenv(k)
		}
	}
}
