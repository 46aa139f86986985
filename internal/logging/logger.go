// Package logging builds the process logger and relays frontend log entries.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DirPermissions  = 0o755
	FilePermissions = 0o644

	MaxMessageLength   = 10000
	MaxDataValueLength = 1000
)

// SensitiveKeys are redacted from frontend log data.
var SensitiveKeys = []string{
	"password", "passcode", "pwd",
	"token", "secret", "authorization", "credential",
	"session", "cookie",
}

type Config struct {
	Level string
	JSON  bool
	// File appends to a log file instead of writing to stderr.
	File string
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger for cfg and the closer for its output.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), DirPermissions); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, FilePermissions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out, closer = file, file
	}
	return slog.New(newHandler(out, cfg)), closer, nil
}

func newHandler(out io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
				}
			}
			return a
		},
	}
	if cfg.JSON {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FrontendEntry is a log line sent by the UI.
type FrontendEntry struct {
	Level   string         `json:"level"`
	Module  string         `json:"module"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// LogFrontend writes entry to logger with sensitive data redacted.
func LogFrontend(logger *slog.Logger, entry FrontendEntry) {
	logger = logger.With("source", "frontend", "module", entry.Module)
	if data := sanitizeData(entry.Data); len(data) > 0 {
		logger = logger.With("data", data)
	}
	logger.Log(context.Background(), ParseLevel(entry.Level), truncate(entry.Message, MaxMessageLength))
}

func sanitizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	result := make(map[string]any, len(data))
	for key, value := range data {
		if sensitive(key) {
			result[key] = "[REDACTED]"
			continue
		}
		if s, ok := value.(string); ok {
			result[key] = truncate(s, MaxDataValueLength)
			continue
		}
		result[key] = value
	}
	return result
}

func sensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range SensitiveKeys {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit] + "...[truncated]"
	}
	return s
}
