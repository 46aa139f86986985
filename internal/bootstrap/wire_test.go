package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"captionview/internal/audio"
	"captionview/internal/config"
	"captionview/internal/domain"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"CAPTIONVIEW_CONFIG_DIR", "CAPTIONVIEW_GLOSSARY_FILE", "CAPTIONVIEW_REMOTE_ADDR",
		"CAPTIONVIEW_PLAYER", "CAPTIONVIEW_PLAYER_COMMAND", "CAPTIONVIEW_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
	return home
}

func TestBuildSuccess(t *testing.T) {
	home := isolate(t)

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Connection == nil || services.Audio == nil || services.Transcript == nil {
		t.Fatalf("expected connection, audio and transcript services")
	}
	if services.Header == nil || services.Glossary == nil || services.Preferences == nil || services.WakeLock == nil {
		t.Fatalf("expected ambient services")
	}
	if services.Remote != nil {
		t.Fatalf("remote control should be off without an address")
	}
	if _, err := os.Stat(filepath.Join(home, ".config", "captionview")); err != nil {
		t.Fatalf("expected preferences directory to be created: %v", err)
	}
	if status := services.Connection.Status(); status.State != domain.StatusDisconnected || status.Language != "en" {
		t.Fatalf("unexpected initial status: %+v", status)
	}
}

func TestBuildWiresOptionalPieces(t *testing.T) {
	home := isolate(t)
	rules := filepath.Join(home, "terms.rules")
	if err := os.WriteFile(rules, []byte("cooper netties => Kubernetes\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("CAPTIONVIEW_GLOSSARY_FILE", rules)
	t.Setenv("CAPTIONVIEW_REMOTE_ADDR", "127.0.0.1:0")
	t.Setenv("CAPTIONVIEW_LOG_FILE", filepath.Join(home, "logs", "viewer.log"))

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer services.Close()

	if services.Remote == nil {
		t.Fatalf("expected remote control server")
	}
	if services.Glossary.Len() != 1 {
		t.Fatalf("expected one glossary rule, got %d", services.Glossary.Len())
	}
	got, err := services.Glossary.Apply("deploy to Cooper Netties")
	if err != nil || got != "deploy to Kubernetes" {
		t.Fatalf("unexpected glossary output %q err=%v", got, err)
	}
	if _, err := os.Stat(filepath.Join(home, "logs", "viewer.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestBuildSurvivesInvalidGlossary(t *testing.T) {
	home := isolate(t)
	rules := filepath.Join(home, "bad.rules")
	if err := os.WriteFile(rules, []byte("not a valid rule\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("CAPTIONVIEW_GLOSSARY_FILE", rules)

	services, err := Build(noopEventSink{}, noopClipboard{})
	if err != nil {
		t.Fatalf("an invalid glossary must not stop the viewer: %v", err)
	}
	defer services.Close()

	if services.Glossary == nil || services.Glossary.Len() != 0 {
		t.Fatalf("expected an empty glossary")
	}
	if got, err := services.Glossary.Apply("unchanged"); err != nil || got != "unchanged" {
		t.Fatalf("unexpected glossary output %q err=%v", got, err)
	}

	if err := os.WriteFile(rules, []byte("s-class => S-Class\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := services.Glossary.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got, _ := services.Glossary.Apply("an s-class car"); got != "an S-Class car" {
		t.Fatalf("expected fixed glossary to apply, got %q", got)
	}
}

func TestNewPlayerSelection(t *testing.T) {
	t.Parallel()

	if _, ok := newPlayer(config.AudioConfig{Player: config.PlayerCommand, PlayerCommand: "aplay"}).(*audio.CommandPlayer); !ok {
		t.Fatalf("expected command player")
	}
	if _, ok := newPlayer(config.AudioConfig{Player: config.PlayerPortAudio}).(*audio.PortAudioPlayer); !ok {
		t.Fatalf("expected portaudio player")
	}
}

type noopEventSink struct{}

func (noopEventSink) ConnectionChanged(domain.Status)       {}
func (noopEventSink) PhraseUpdated(domain.PhraseUpdate)     {}
func (noopEventSink) PhrasePlaying(string, bool)            {}
func (noopEventSink) AudioStatusChanged(domain.AudioStatus) {}
func (noopEventSink) PendingMessagesChanged(int)            {}
func (noopEventSink) HeaderCollapsedChanged(bool)           {}
func (noopEventSink) SessionEnded(string)                   {}
func (noopEventSink) Notify(domain.NoticeKind, string)      {}
func (noopEventSink) SessionError(domain.ErrorCode, string) {}

type noopClipboard struct{}

func (noopClipboard) SetText(_ context.Context, _ string) error { return nil }
