package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8000"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	MaxUploadMB int64    `env:"MAX_UPLOAD_MB" envDefault:"100"`
	TempDir     string   `env:"TEMP_DIR"`

	Whisper WhisperConfig

	// whisper.cpp only reads wav/mp3/flac/ogg; ffmpeg normalizes m4a, webm etc.
	PreprocessAudio bool   `env:"PREPROCESS_AUDIO" envDefault:"true"`
	FFmpegBin       string `env:"FFMPEG_BIN" envDefault:"ffmpeg"`

	Workers           int           `env:"TRANSCRIBE_WORKERS" envDefault:"1"`
	QueueSize         int           `env:"TRANSCRIBE_QUEUE_SIZE" envDefault:"16"`
	TranscribeTimeout time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"10m"`

	MQTT MQTTConfig

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// WhisperConfig selects and configures the speech-to-text engine.
type WhisperConfig struct {
	Backend   string `env:"WHISPER_BACKEND" envDefault:"local"` // local, http, openai
	Model     string `env:"WHISPER_MODEL" envDefault:"small"`
	Language  string `env:"WHISPER_LANGUAGE"`
	Bin       string `env:"WHISPER_BIN" envDefault:"whisper-cli"`
	ModelDir  string `env:"WHISPER_MODEL_DIR" envDefault:"./models"`
	URL       string `env:"WHISPER_URL"`
	SkipProbe bool   `env:"WHISPER_SKIP_PROBE" envDefault:"false"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"whisper-1"`
}

// MQTTConfig holds the optional event publisher settings.
// Publishing is disabled when BrokerURL is empty.
type MQTTConfig struct {
	BrokerURL string `env:"MQTT_BROKER_URL"`
	ClientID  string `env:"MQTT_CLIENT_ID" envDefault:"innermap-backend"`
	Topic     string `env:"MQTT_TOPIC" envDefault:"innermap/transcriptions"`
	Username  string `env:"MQTT_USERNAME"`
	Password  string `env:"MQTT_PASSWORD"`
}

// Enabled reports whether an MQTT broker is configured.
func (c MQTTConfig) Enabled() bool { return c.BrokerURL != "" }

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MaxUploadBytes returns the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	Host     string
	Port     int
	LogLevel string
	Backend  string
	Model    string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if overrides.Host != "" {
		cfg.Host = overrides.Host
	}
	if overrides.Port != 0 {
		cfg.Port = overrides.Port
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Backend != "" {
		cfg.Whisper.Backend = overrides.Backend
	}
	if overrides.Model != "" {
		cfg.Whisper.Model = overrides.Model
	}

	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	return cfg, nil
}
