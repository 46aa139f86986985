package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"captionview/internal/bootstrap"
	"captionview/internal/domain"
	"captionview/internal/logging"
	"captionview/internal/usecase"
)

const (
	eventConnection  = "captionview:connection"
	eventPhrase      = "captionview:phrase"
	eventPlaying     = "captionview:playing"
	eventAudio       = "captionview:audio"
	eventPending     = "captionview:pending"
	eventHeader      = "captionview:header"
	eventEnded       = "captionview:ended"
	eventNotice      = "captionview:notice"
	eventError       = "captionview:error"
	eventPreferences = "captionview:preferences"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	services bootstrap.Services
	logger   *slog.Logger
	bootErr  error
}

func NewApp() *App {
	return &App{logger: slog.Default()}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services
	a.logger = services.Logger.With("component", "app")
	slog.SetDefault(services.Logger)

	background, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.runBackground("glossary watcher", func() error { return services.Glossary.Watch(background) })
	go a.runBackground("preferences watcher", func() error {
		return services.Preferences.Watch(background, a.PreferencesChanged)
	})
	if services.Remote != nil {
		go a.runBackground("remote control", func() error { return services.Remote.Run(background) })
	}

	a.ConnectionChanged(services.Connection.Status())
	a.AudioStatusChanged(domain.AudioStatusOff)
	a.PreferencesChanged(services.Preferences.Get())
	services.Header.Activity()
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services.Connection == nil {
		return
	}
	if err := a.services.Connection.Disconnect(); err != nil && !errors.Is(err, usecase.ErrNotConnected) {
		a.logger.Warn("disconnect on shutdown failed", "error", err)
	}
	if err := a.services.Close(); err != nil {
		a.logger.Warn("failed to release resources", "error", err)
	}
}

func (a *App) runBackground(name string, run func() error) {
	if err := run(); err != nil {
		a.logger.Warn("background task stopped", "task", name, "error", err)
	}
}

// Connect joins a session. Invalid ids are rejected without touching the network.
func (a *App) Connect(sessionID, passcode, language string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Connection.Connect(a.ctx, sessionID, passcode, language); err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidSessionID), errors.Is(err, usecase.ErrUnknownLanguage):
			a.SessionError(domain.ErrorCodeValidation, err.Error())
		case errors.Is(err, usecase.ErrAlreadyConnected):
		default:
			a.SessionError(domain.ErrorCodeTransport, err.Error())
		}
		return a.services.Connection.Status(), err
	}
	a.services.Header.Activity()
	return a.services.Connection.Status(), nil
}

func (a *App) Disconnect() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Connection.Disconnect(); err != nil && !errors.Is(err, usecase.ErrNotConnected) {
		a.SessionError(domain.ErrorCodeTransport, err.Error())
		return err
	}
	return nil
}

func (a *App) ChangeLanguage(code string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.services.Connection.ChangeLanguage(code); err != nil {
		if errors.Is(err, usecase.ErrUnknownLanguage) {
			a.SessionError(domain.ErrorCodeValidation, err.Error())
		} else {
			a.SessionError(domain.ErrorCodeTransport, err.Error())
		}
		return err
	}
	return nil
}

func (a *App) SetAudioEnabled(enabled bool) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Connection.SetAudioEnabled(enabled); err != nil {
		a.SessionError(domain.ErrorCodeAudio, err.Error())
		return a.services.Connection.Status(), err
	}
	return a.services.Connection.Status(), nil
}

// GetStatus returns the current connection status.
func (a *App) GetStatus() domain.Status {
	if a.services.Connection == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.StatusError, Message: a.bootErr.Error(), Language: domain.DefaultLanguage}
		}
		return domain.Status{State: domain.StatusDisconnected, Language: domain.DefaultLanguage}
	}
	return a.services.Connection.Status()
}

func (a *App) Languages() []domain.Language {
	return domain.Languages()
}

// FormatSessionID normalizes what the user typed so far into XXXX-XXXX form.
func (a *App) FormatSessionID(raw string) string {
	return domain.NormalizeSessionID(raw)
}

// GetTranscript returns the retained phrases, oldest first.
func (a *App) GetTranscript() []domain.Phrase {
	if a.services.Transcript == nil {
		return nil
	}
	return a.services.Transcript.Phrases()
}

// ReportScroll records the viewport position and returns the pending count.
func (a *App) ReportScroll(scrollTop, scrollHeight, clientHeight float64) int {
	if a.services.Transcript == nil {
		return 0
	}
	near := usecase.NearLiveEdge(scrollTop, scrollHeight, clientHeight, a.services.Config.Transcript.ScrollThreshold)
	pending := a.services.Transcript.ReportScroll(near)
	a.PendingMessagesChanged(pending)
	return pending
}

func (a *App) JumpToLiveEdge() {
	if a.services.Transcript == nil {
		return
	}
	a.services.Transcript.JumpToLiveEdge()
	a.PendingMessagesChanged(0)
}

// CopyTranscript places the transcript on the clipboard as "speaker: text" lines.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	text := a.services.Transcript.Text()
	if text == "" {
		a.Notify(domain.NoticeInfo, "Nothing to copy yet")
		return nil
	}
	if err := a.services.Clipboard.SetText(a.ctx, text); err != nil {
		a.SessionError(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	a.Notify(domain.NoticeInfo, "Transcript copied to clipboard")
	return nil
}

func (a *App) ToggleHeader() bool {
	if a.services.Header == nil {
		return false
	}
	return a.services.Header.Toggle()
}

// Activity reports pointer or keyboard input, which keeps the header expanded.
func (a *App) Activity() {
	if a.services.Header != nil {
		a.services.Header.Activity()
	}
}

// ToggleWakeLock flips the screen wake lock. Failures only produce a notice.
func (a *App) ToggleWakeLock() bool {
	if a.services.WakeLock == nil {
		return false
	}
	held, err := a.services.WakeLock.Toggle(a.ctx)
	if err != nil {
		a.logger.Warn("wake lock toggle failed", "error", err)
		a.Notify(domain.NoticeError, "Screen wake lock unavailable")
		return a.services.WakeLock.Held()
	}
	if held {
		a.Notify(domain.NoticeInfo, "Screen will stay awake")
	} else {
		a.Notify(domain.NoticeInfo, "Screen may sleep")
	}
	return held
}

func (a *App) GetPreferences() domain.Preferences {
	if a.services.Preferences == nil {
		return domain.DefaultPreferences()
	}
	return a.services.Preferences.Get()
}

func (a *App) SetFont(size string, bold bool) (domain.Preferences, error) {
	if err := a.requireReady(); err != nil {
		return domain.Preferences{}, err
	}
	return a.savePreferences(a.services.Preferences.SetFont(domain.FontSize(size), bold))
}

func (a *App) SetDarkMode(dark bool) (domain.Preferences, error) {
	if err := a.requireReady(); err != nil {
		return domain.Preferences{}, err
	}
	return a.savePreferences(a.services.Preferences.SetDarkMode(dark))
}

func (a *App) SetScrollDirection(direction string) (domain.Preferences, error) {
	if err := a.requireReady(); err != nil {
		return domain.Preferences{}, err
	}
	return a.savePreferences(a.services.Preferences.SetScrollDirection(domain.ScrollDirection(direction)))
}

func (a *App) savePreferences(prefs domain.Preferences, err error) (domain.Preferences, error) {
	if err != nil {
		a.SessionError(domain.ErrorCodePrefs, err.Error())
		return prefs, err
	}
	a.PreferencesChanged(prefs)
	return prefs, nil
}

// LogFromFrontend records a UI log line with sensitive fields redacted.
func (a *App) LogFromFrontend(entry logging.FrontendEntry) {
	logging.LogFrontend(a.logger, entry)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	cfg := a.services.Config
	return map[string]string{
		"endpoint":     cfg.Service.Endpoint,
		"player":       cfg.Audio.Player,
		"glossaryFile": cfg.Glossary.Path,
		"configDir":    cfg.Storage.Dir,
		"remoteAddr":   cfg.Remote.Addr,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Connection == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

func (a *App) emit(name string, payload any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, name, payload)
}

// ConnectionChanged emits connection lifecycle updates to the frontend.
func (a *App) ConnectionChanged(status domain.Status) {
	a.emit(eventConnection, status)
}

func (a *App) PhraseUpdated(update domain.PhraseUpdate) {
	a.emit(eventPhrase, update)
}

func (a *App) PhrasePlaying(phraseID string, playing bool) {
	a.emit(eventPlaying, map[string]any{"phraseId": phraseID, "playing": playing})
}

func (a *App) AudioStatusChanged(status domain.AudioStatus) {
	a.emit(eventAudio, map[string]string{"status": string(status), "label": audioStatusLabel(status)})
}

func (a *App) PendingMessagesChanged(count int) {
	a.emit(eventPending, map[string]int{"count": count})
}

func (a *App) HeaderCollapsedChanged(collapsed bool) {
	a.emit(eventHeader, map[string]bool{"collapsed": collapsed})
}

func (a *App) SessionEnded(reason string) {
	a.emit(eventEnded, map[string]string{"reason": reason})
}

func (a *App) Notify(kind domain.NoticeKind, message string) {
	a.emit(eventNotice, map[string]string{"kind": string(kind), "message": message})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// PreferencesChanged pushes display settings, including edits made by another viewer.
func (a *App) PreferencesChanged(prefs domain.Preferences) {
	a.emit(eventPreferences, prefs)
}

func audioStatusLabel(status domain.AudioStatus) string {
	switch status {
	case domain.AudioStatusReady:
		return "Ready"
	case domain.AudioStatusPlaying:
		return "Playing"
	case domain.AudioStatusError:
		return "Playback error"
	case domain.AudioStatusEmpty:
		return "No audio"
	default:
		return "Off"
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeValidation:
		return "Check the session details"
	case domain.ErrorCodeHandshake:
		return "The session rejected the connection"
	case domain.ErrorCodeTransport:
		return "Connection issue"
	case domain.ErrorCodeServer:
		return "Server error"
	case domain.ErrorCodeAudio:
		return "Audio issue"
	case domain.ErrorCodeWakeLock:
		return "Screen wake lock unavailable"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodePrefs:
		return "Preferences could not be saved"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
