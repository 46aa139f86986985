// Package preferences persists display settings as small JSON records in the config directory.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"captionview/internal/domain"
)

const (
	fontFile   = "font.json"
	themeFile  = "theme.json"
	scrollFile = "scroll.json"
)

var (
	ErrInvalidFontSize        = errors.New("font size must be normal or large")
	ErrInvalidScrollDirection = errors.New("scroll direction must be up or down")
)

type fontRecord struct {
	Size domain.FontSize `json:"size"`
	Bold bool            `json:"bold"`
}

type themeRecord struct {
	Value string `json:"value"`
}

type scrollRecord struct {
	Direction domain.ScrollDirection `json:"direction"`
}

// Store keeps the current preferences in memory and writes every change through to disk.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	prefs domain.Preferences
}

// Open loads the records in dir, creating the directory if needed.
// Missing or unreadable records fall back to defaults.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}
	s := &Store{dir: dir, logger: logger.With("component", "preferences")}
	s.prefs = s.read()
	return s, nil
}

func (s *Store) Get() domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

func (s *Store) SetFont(size domain.FontSize, bold bool) (domain.Preferences, error) {
	if size != domain.FontSizeNormal && size != domain.FontSizeLarge {
		return s.Get(), ErrInvalidFontSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(fontFile, fontRecord{Size: size, Bold: bold}); err != nil {
		return s.prefs, err
	}
	s.prefs.FontSize = size
	s.prefs.FontBold = bold
	return s.prefs, nil
}

func (s *Store) SetDarkMode(dark bool) (domain.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	next.DarkMode = dark
	if err := s.write(themeFile, themeRecord{Value: next.Theme()}); err != nil {
		return s.prefs, err
	}
	s.prefs = next
	return s.prefs, nil
}

func (s *Store) SetScrollDirection(direction domain.ScrollDirection) (domain.Preferences, error) {
	if direction != domain.ScrollDown && direction != domain.ScrollUp {
		return s.Get(), ErrInvalidScrollDirection
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(scrollFile, scrollRecord{Direction: direction}); err != nil {
		return s.prefs, err
	}
	s.prefs.ScrollDirection = direction
	return s.prefs, nil
}

// Reload re-reads every record and reports whether anything changed.
func (s *Store) Reload() (domain.Preferences, bool) {
	next := s.read()
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := next != s.prefs
	s.prefs = next
	return next, changed
}

// Watch calls onChange when another process edits the records. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(domain.Preferences)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create preferences watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch preferences directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch filepath.Base(event.Name) {
			case fontFile, themeFile, scrollFile:
			default:
				continue
			}
			if prefs, changed := s.Reload(); changed && onChange != nil {
				s.logger.Debug("preferences changed on disk", "file", filepath.Base(event.Name))
				onChange(prefs)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("preferences watcher error", "error", err)
		}
	}
}

func (s *Store) read() domain.Preferences {
	prefs := domain.DefaultPreferences()

	var font fontRecord
	if s.load(fontFile, &font) {
		if font.Size == domain.FontSizeNormal || font.Size == domain.FontSizeLarge {
			prefs.FontSize = font.Size
		}
		prefs.FontBold = font.Bold
	}

	var theme themeRecord
	if s.load(themeFile, &theme) {
		prefs.DarkMode = theme.Value == "dark"
	}

	var scroll scrollRecord
	if s.load(scrollFile, &scroll) {
		if scroll.Direction == domain.ScrollUp || scroll.Direction == domain.ScrollDown {
			prefs.ScrollDirection = scroll.Direction
		}
	}
	return prefs
}

func (s *Store) load(name string, target any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to read preference record", "file", name, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		s.logger.Warn("ignoring corrupt preference record", "file", name, "error", err)
		return false
	}
	return true
}

func (s *Store) write(name string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	return nil
}
