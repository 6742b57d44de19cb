package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config stores runtime configuration for the client.
type Config struct {
	Backend  BackendConfig
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Synth    SynthConfig
	Rules    RulesConfig
	Listen   ListenConfig
}

// BackendConfig locates the repository-analysis backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	Endpointing time.Duration
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type SynthConfig struct {
	Command string
	Voice   string
	Rate    int
}

type RulesConfig struct {
	Path      string
	PassLimit int
}

type ListenConfig struct {
	ChunkSize    int
	MaxUtterance time.Duration
}

// Load resolves configuration from environment variables with sensible
// defaults. Speech settings may be absent; capability probing decides
// later whether the related features exist at all.
func Load() (Config, error) {
	cfg := Config{
		Backend: BackendConfig{
			BaseURL: envOrDefault("REPOTALK_BACKEND_URL", "http://localhost:8000"),
			Timeout: envDurationMS("REPOTALK_BACKEND_TIMEOUT_MS", 120*time.Second),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envBool("DEEPGRAM_SMART_FORMAT", true),
			Endpointing: envDurationMS("DEEPGRAM_ENDPOINTING_MS", 800*time.Millisecond),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("REPOTALK_RECORDER_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("REPOTALK_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("REPOTALK_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envInt("REPOTALK_SAMPLE_RATE", 16000),
			Channels:        envInt("REPOTALK_CHANNELS", 1),
		},
		Synth: SynthConfig{
			Command: strings.TrimSpace(os.Getenv("REPOTALK_SPEECH_COMMAND")),
			Voice:   strings.TrimSpace(os.Getenv("REPOTALK_SPEECH_VOICE")),
			Rate:    envInt("REPOTALK_SPEECH_RATE", 0),
		},
		Rules: RulesConfig{
			Path:      rulesPath(),
			PassLimit: envInt("REPOTALK_RULE_PASS_LIMIT", 30),
		},
		Listen: ListenConfig{
			ChunkSize:    envInt("REPOTALK_AUDIO_CHUNK_SIZE", 4096),
			MaxUtterance: envDurationMS("REPOTALK_MAX_UTTERANCE_MS", 30*time.Second),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.PassLimit <= 0 {
		cfg.Rules.PassLimit = 30
	}
	if cfg.Listen.ChunkSize < 256 {
		cfg.Listen.ChunkSize = 4096
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 120 * time.Second
	}

	return cfg, nil
}

func rulesPath() string {
	if override := strings.TrimSpace(os.Getenv("REPOTALK_RULES_FILE")); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "repotalk", "substitutions.rules")
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDurationMS(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
