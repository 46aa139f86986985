package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"captionview/internal/domain"
)

const (
	PlayerPortAudio = "portaudio"
	PlayerCommand   = "command"
)

// Config stores runtime configuration for the viewer.
type Config struct {
	Service    ServiceConfig
	Transcript TranscriptConfig
	Audio      AudioConfig
	Glossary   GlossaryConfig
	Storage    StorageConfig
	Remote     RemoteConfig
	Log        LogConfig
}

type ServiceConfig struct {
	Endpoint          string
	Language          string
	DialTimeout       time.Duration
	ReconnectInterval time.Duration
	VoiceSettleDelay  time.Duration
}

type TranscriptConfig struct {
	Limit               int
	ScrollThreshold     float64
	HeaderCollapseDelay time.Duration
}

type AudioConfig struct {
	Player        string
	PlayerCommand string
}

type GlossaryConfig struct {
	Path           string
	IterationLimit int
}

type StorageConfig struct {
	Dir string
}

type RemoteConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
	JSON  bool
	File  string
}

// Load resolves configuration from environment variables and sensible defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	configDir := envOrDefault("CAPTIONVIEW_CONFIG_DIR", filepath.Join(home, ".config", "captionview"))
	glossaryPath := strings.TrimSpace(os.Getenv("CAPTIONVIEW_GLOSSARY_FILE"))
	if glossaryPath == "" {
		glossaryPath = firstExisting(
			filepath.Join(configDir, "glossary.rules"),
			filepath.Join(configDir, "substitutions.rules"),
		)
	}

	cfg := Config{
		Service: ServiceConfig{
			Endpoint:          envOrDefault("CAPTIONVIEW_ENDPOINT", "wss://endpoint.wordly.ai/attend"),
			Language:          envOrDefault("CAPTIONVIEW_LANGUAGE", domain.DefaultLanguage),
			DialTimeout:       envOrDefaultMillis("CAPTIONVIEW_DIAL_TIMEOUT_MS", 10000),
			ReconnectInterval: envOrDefaultMillis("CAPTIONVIEW_RECONNECT_MS", 3000),
			VoiceSettleDelay:  envOrDefaultMillis("CAPTIONVIEW_VOICE_SETTLE_MS", 500),
		},
		Transcript: TranscriptConfig{
			Limit:               firstNonNegativeInt("CAPTIONVIEW_TRANSCRIPT_LIMIT", "CAPTIONVIEW_MAX_PHRASES", 150),
			ScrollThreshold:     envOrDefaultFloat("CAPTIONVIEW_SCROLL_THRESHOLD", 50),
			HeaderCollapseDelay: envOrDefaultMillis("CAPTIONVIEW_HEADER_COLLAPSE_MS", 10000),
		},
		Audio: AudioConfig{
			Player:        strings.ToLower(envOrDefault("CAPTIONVIEW_PLAYER", PlayerPortAudio)),
			PlayerCommand: envOrDefault("CAPTIONVIEW_PLAYER_COMMAND", "ffplay"),
		},
		Glossary: GlossaryConfig{
			Path:           glossaryPath,
			IterationLimit: envOrDefaultInt("CAPTIONVIEW_GLOSSARY_ITERATION_LIMIT", 30),
		},
		Storage: StorageConfig{
			Dir: configDir,
		},
		Remote: RemoteConfig{
			Addr: strings.TrimSpace(os.Getenv("CAPTIONVIEW_REMOTE_ADDR")),
		},
		Log: LogConfig{
			Level: strings.ToLower(envOrDefault("CAPTIONVIEW_LOG_LEVEL", "info")),
			JSON:  envOrDefaultBool("CAPTIONVIEW_LOG_JSON", false),
			File:  strings.TrimSpace(os.Getenv("CAPTIONVIEW_LOG_FILE")),
		},
	}

	if !domain.KnownLanguage(cfg.Service.Language) {
		cfg.Service.Language = domain.DefaultLanguage
	}
	if cfg.Service.DialTimeout <= 0 {
		cfg.Service.DialTimeout = 10 * time.Second
	}
	if cfg.Service.ReconnectInterval < 100*time.Millisecond {
		cfg.Service.ReconnectInterval = 3 * time.Second
	}
	if cfg.Service.VoiceSettleDelay <= 0 {
		cfg.Service.VoiceSettleDelay = 500 * time.Millisecond
	}
	if cfg.Transcript.ScrollThreshold < 0 {
		cfg.Transcript.ScrollThreshold = 50
	}
	if cfg.Transcript.HeaderCollapseDelay <= 0 {
		cfg.Transcript.HeaderCollapseDelay = 10 * time.Second
	}
	if cfg.Audio.Player != PlayerCommand {
		cfg.Audio.Player = PlayerPortAudio
	}
	if cfg.Glossary.IterationLimit <= 0 {
		cfg.Glossary.IterationLimit = 30
	}

	return cfg, nil
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
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

func envOrDefaultMillis(key string, fallback int) time.Duration {
	return time.Duration(envOrDefaultInt(key, fallback)) * time.Millisecond
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonNegativeInt(primary string, secondary string, fallback int) int {
	for _, key := range []string{primary, secondary} {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}
