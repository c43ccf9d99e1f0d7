// Package config handles loading and validating the lingopipe configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the lingopipe service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Transcode  TranscodeConfig  `mapstructure:"transcode"`
	STT        STTConfig        `mapstructure:"stt"`
	Corrector  CorrectorConfig  `mapstructure:"corrector"`
	Translator TranslatorConfig `mapstructure:"translator"`
	TTS        TTSConfig        `mapstructure:"tts"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port           int   `mapstructure:"port"`
	HealthPort     int   `mapstructure:"health_port"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// StorageConfig holds the on-disk artifact directories.
//
// Both directories grow without bound: uploads and synthesized audio are
// never deleted by the service. Cleanup is a deployment concern (cron,
// tmpwatch, volume rotation), not part of the pipeline.
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	AudioDir  string `mapstructure:"audio_dir"`
}

// TranscodeConfig configures the external ffmpeg transcoder.
type TranscodeConfig struct {
	FFmpegPath     string `mapstructure:"ffmpeg_path"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Channels       int    `mapstructure:"channels"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// STTConfig configures the Whisper-compatible transcription endpoint.
type STTConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Flavor   string `mapstructure:"flavor"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"` // recognition language forced on every request
	APIKey   string `mapstructure:"api_key"`

	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CorrectorConfig configures the grammar-correction model.
type CorrectorConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"` // base or fine-tuned seq2seq model name
	MaxLength      int    `mapstructure:"max_length"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// TranslatorConfig configures the per-language translation models.
type TranslatorConfig struct {
	Endpoint       string            `mapstructure:"endpoint"`
	Source         string            `mapstructure:"source"` // source language code, requests for it are identity
	Models         map[string]string `mapstructure:"models"` // ISO-639-1 target code -> model name
	MaxLength      int               `mapstructure:"max_length"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
}

// TTSConfig configures the Piper speech synthesis backend (Wyoming protocol).
type TTSConfig struct {
	Endpoint       string            `mapstructure:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voices         map[string]string `mapstructure:"voices"`   // ISO-639-1 language code -> Piper voice name
	LengthScale    float64           `mapstructure:"length_scale"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./lingopipe.yaml, ./configs/lingopipe.yaml, /etc/lingopipe/lingopipe.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.health_port", 5001)
	v.SetDefault("server.max_upload_bytes", 25<<20)
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.audio_dir", "static/audio")
	v.SetDefault("transcode.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcode.sample_rate", 16000)
	v.SetDefault("transcode.channels", 1)
	v.SetDefault("transcode.timeout_seconds", 60)
	v.SetDefault("stt.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("stt.flavor", "openai")
	v.SetDefault("stt.model", "whisper-small")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.api_key", "")
	v.SetDefault("stt.timeout_seconds", 120)
	v.SetDefault("corrector.endpoint", "http://localhost:8089")
	v.SetDefault("corrector.model", "t5-small")
	v.SetDefault("corrector.max_length", 256)
	v.SetDefault("corrector.timeout_seconds", 60)
	v.SetDefault("translator.endpoint", "http://localhost:8089")
	v.SetDefault("translator.source", "en")
	v.SetDefault("translator.models", map[string]string{
		"es": "Helsinki-NLP/opus-mt-en-es",
		"fr": "Helsinki-NLP/opus-mt-en-fr",
		"hi": "Helsinki-NLP/opus-mt-en-hi",
	})
	v.SetDefault("translator.max_length", 512)
	v.SetDefault("translator.timeout_seconds", 60)
	v.SetDefault("tts.endpoint", "localhost:10200")
	v.SetDefault("tts.length_scale", 1.0)
	v.SetDefault("tts.timeout_seconds", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("lingopipe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lingopipe")
	}

	// Environment variables: LINGOPIPE_SERVER_PORT, LINGOPIPE_STT_ENDPOINT, etc.
	v.SetEnvPrefix("LINGOPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.STT.APIKey = resolveEnvRef(cfg.STT.APIKey)

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
