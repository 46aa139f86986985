package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"captionview/internal/domain"
	"captionview/internal/ports"
	"captionview/internal/protocol"
)

var (
	ErrInvalidSessionID = errors.New("session id must look like ABCD-1234")
	ErrAlreadyConnected = errors.New("already connected to a session")
	ErrNotConnected     = errors.New("not connected to a session")
	ErrUnknownLanguage  = errors.New("unknown language code")
)

// Close codes sent to the service.
const (
	closeNormal      = 1000
	closeServerError = 1011
)

// ConnectionConfig controls reconnect and language change timing.
type ConnectionConfig struct {
	ReconnectInterval time.Duration
	VoiceSettleDelay  time.Duration
	DefaultLanguage   string
}

// ConnectionManager owns the channel to the translation service and dispatches what it receives.
type ConnectionManager struct {
	dialer     ports.Dialer
	audio      *AudioQueue
	transcript *Transcript
	filter     ports.TextFilter
	events     ports.EventSink
	logger     *slog.Logger
	cfg        ConnectionConfig

	newIdentifier func() string

	mu           sync.Mutex
	parent       context.Context
	session      *domain.Session
	language     string
	state        domain.ConnectionStatus
	message      string
	attempt      uint64
	channel      ports.Channel
	cancelDial   context.CancelFunc
	audioEnabled bool
	retry        *time.Timer
	voice        *time.Timer
	voiceSeq     uint64
}

func NewConnectionManager(
	dialer ports.Dialer,
	audio *AudioQueue,
	transcript *Transcript,
	filter ports.TextFilter,
	events ports.EventSink,
	logger *slog.Logger,
	cfg ConnectionConfig,
) *ConnectionManager {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 3 * time.Second
	}
	if cfg.VoiceSettleDelay <= 0 {
		cfg.VoiceSettleDelay = 500 * time.Millisecond
	}
	if !domain.KnownLanguage(cfg.DefaultLanguage) {
		cfg.DefaultLanguage = domain.DefaultLanguage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionManager{
		dialer:        dialer,
		audio:         audio,
		transcript:    transcript,
		filter:        filter,
		events:        events,
		logger:        logger.With("component", "connection"),
		cfg:           cfg,
		newIdentifier: newViewerIdentifier,
		parent:        context.Background(),
		language:      cfg.DefaultLanguage,
		state:         domain.StatusDisconnected,
	}
}

func newViewerIdentifier() string {
	return "secure-viewer-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// Connect validates the session id and starts the first connection attempt.
func (m *ConnectionManager) Connect(ctx context.Context, rawSessionID, passcode, language string) error {
	id := domain.NormalizeSessionID(rawSessionID)
	if !domain.ValidSessionID(id) {
		return ErrInvalidSessionID
	}
	language = strings.TrimSpace(language)
	if language != "" && !domain.KnownLanguage(language) {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, language)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Open() {
		return ErrAlreadyConnected
	}
	if language == "" {
		language = m.language
	}

	m.stopTimersLocked()
	if stale := m.detachChannelLocked(); stale != nil {
		go func() { _ = stale.Close(closeNormal, "Reconnecting") }()
	}
	m.audio.Stop()
	m.transcript.Reset()

	m.parent = context.WithoutCancel(ctx)
	m.language = language
	m.session = &domain.Session{ID: id, Passcode: strings.TrimSpace(passcode), Language: language}
	m.logger.Info("connecting", "session", domain.MaskSessionID(id), "language", language)
	m.startAttemptLocked()
	return nil
}

// Disconnect ends the session on the user's request. Pending reconnects never fire afterwards.
// The close frame is written after the lock is released so a stalled peer cannot block other calls.
func (m *ConnectionManager) Disconnect() error {
	m.mu.Lock()
	m.attempt++
	m.stopTimersLocked()
	ch := m.detachChannelLocked()
	m.audio.Stop()
	m.transcript.Reset()
	m.session = nil
	m.setStateLocked(domain.StatusDisconnected, "Disconnected by user.")
	m.logger.Info("disconnected by user")
	m.mu.Unlock()

	if ch == nil {
		return nil
	}
	return ch.Close(closeNormal, "User disconnected")
}

// ChangeLanguage switches the translation language, live while a channel is open.
func (m *ConnectionManager) ChangeLanguage(code string) error {
	code = strings.TrimSpace(code)
	if !domain.KnownLanguage(code) {
		return fmt.Errorf("%w: %s", ErrUnknownLanguage, code)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.language = code
	if m.session != nil {
		m.session.Language = code
	}
	if m.channel == nil {
		m.events.ConnectionChanged(m.statusLocked())
		return nil
	}

	m.cancelVoiceLocked()
	m.audio.Stop()
	if m.audioEnabled {
		if err := m.sendLocked(protocol.NewVoiceRequest(false)); err != nil {
			m.logger.Warn("failed to pause voice before language change", "error", err)
		}
	}
	if err := m.sendLocked(protocol.NewChangeRequest(code)); err != nil {
		return err
	}
	if m.audioEnabled {
		token, seq := m.attempt, m.voiceSeq
		m.voice = time.AfterFunc(m.cfg.VoiceSettleDelay, func() { m.reenableVoice(token, seq) })
	}
	m.logger.Info("language changed", "language", code)
	m.events.ConnectionChanged(m.statusLocked())
	return nil
}

// SetAudioEnabled toggles synthesized speech and tells the service while a channel is open.
func (m *ConnectionManager) SetAudioEnabled(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audioEnabled = enabled
	m.audio.SetEnabled(enabled)
	if !enabled {
		m.cancelVoiceLocked()
	}
	var err error
	if m.channel != nil {
		err = m.sendLocked(protocol.NewVoiceRequest(enabled))
	}
	m.events.ConnectionChanged(m.statusLocked())
	return err
}

func (m *ConnectionManager) Status() domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

// Language is the language requested for the next or current session.
func (m *ConnectionManager) Language() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.language
}

func (m *ConnectionManager) statusLocked() domain.Status {
	status := domain.Status{
		State:        m.state,
		Message:      m.message,
		Language:     m.language,
		AudioEnabled: m.audioEnabled,
	}
	if m.session != nil {
		status.Session = domain.MaskSessionID(m.session.ID)
	}
	return status
}

func (m *ConnectionManager) setStateLocked(state domain.ConnectionStatus, message string) {
	m.state = state
	m.message = message
	m.events.ConnectionChanged(m.statusLocked())
}

func (m *ConnectionManager) startAttemptLocked() {
	m.attempt++
	token := m.attempt
	session := *m.session
	session.Language = m.language

	ctx, cancel := context.WithCancel(m.parent)
	m.cancelDial = cancel
	m.setStateLocked(domain.StatusConnecting, "Connecting...")
	go m.dial(ctx, token, session)
}

func (m *ConnectionManager) dial(ctx context.Context, token uint64, session domain.Session) {
	ch, err := m.dialer.Dial(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if token != m.attempt {
		if ch != nil {
			_ = ch.Close(closeNormal, "Superseded")
		}
		return
	}
	m.cancelDial = nil
	if err != nil {
		m.logger.Warn("dial failed", "error", err)
		m.setStateLocked(domain.StatusError, "Connection failed. Retrying...")
		m.events.SessionError(domain.ErrorCodeTransport, err.Error())
		m.scheduleReconnectLocked(token)
		return
	}

	m.channel = ch
	request := protocol.NewConnectRequest(session.ID, session.Language, m.newIdentifier(), session.Passcode)
	if err := m.sendLocked(request); err != nil {
		m.channel = nil
		_ = ch.Close(closeServerError, "Send failed")
		m.setStateLocked(domain.StatusError, "Connection failed. Retrying...")
		m.events.SessionError(domain.ErrorCodeTransport, err.Error())
		m.scheduleReconnectLocked(token)
		return
	}
	go m.readLoop(token, ch)
}

func (m *ConnectionManager) readLoop(token uint64, ch ports.Channel) {
	for payload := range ch.Messages() {
		m.handleFrame(token, ch, payload)
	}
	m.handleClosed(token, ch, ch.Wait())
}

func (m *ConnectionManager) handleFrame(token uint64, ch ports.Channel, payload []byte) {
	in, err := protocol.Decode(payload)
	if err != nil {
		m.logger.Warn("ignoring malformed message", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(token, ch) {
		return
	}

	switch in.Type {
	case protocol.TypeStatus:
		m.handleStatusLocked(ch, in.Status)
	case protocol.TypePhrase:
		m.handlePhraseLocked(in.Phrase)
	case protocol.TypeSpeech:
		m.handleSpeechLocked(in.Speech)
	case protocol.TypeEnd:
		m.handleEndLocked(ch, in.End)
	case protocol.TypeError:
		m.handleServerErrorLocked(in.Error)
	case protocol.TypeUsers, protocol.TypeEcho:
	default:
		m.logger.Debug("ignoring unknown message", "type", in.Type)
	}
}

func (m *ConnectionManager) currentLocked(token uint64, ch ports.Channel) bool {
	return token == m.attempt && m.channel == ch
}

func (m *ConnectionManager) handleStatusLocked(ch ports.Channel, status *protocol.StatusMessage) {
	if status.Success {
		m.setStateLocked(domain.StatusConnected, "Connected")
		if m.audioEnabled {
			if err := m.sendLocked(protocol.NewVoiceRequest(true)); err != nil {
				m.logger.Warn("failed to request voice", "error", err)
			}
		}
		return
	}

	message := strings.TrimSpace(status.Message)
	if message == "" {
		message = "Connection failed"
	}
	m.channel = nil
	m.audio.Stop()
	m.setStateLocked(domain.StatusError, message)
	m.events.SessionError(domain.ErrorCodeHandshake, message)
	go func() {
		_ = ch.Close(closeServerError, "Status error received")
	}()
}

func (m *ConnectionManager) handlePhraseLocked(msg *protocol.PhraseMessage) {
	if strings.TrimSpace(msg.PhraseID) == "" {
		m.logger.Warn("ignoring phrase without id")
		return
	}
	text := msg.TranslatedText
	if m.filter != nil {
		filtered, err := m.filter.Apply(text)
		if err != nil {
			m.logger.Warn("glossary failed", "error", err)
		} else {
			text = filtered
		}
	}

	update := m.transcript.Upsert(domain.Phrase{
		ID:          msg.PhraseID,
		SpeakerID:   msg.SpeakerID,
		SpeakerName: msg.Name,
		Text:        text,
		IsFinal:     msg.IsFinal,
	})
	m.events.PhraseUpdated(update)
	if !update.Follow {
		m.events.PendingMessagesChanged(update.Pending)
	}
}

func (m *ConnectionManager) handleSpeechLocked(msg *protocol.SpeechMessage) {
	if !m.audioEnabled {
		return
	}
	audio := msg.SynthesizedSpeech.Data
	if len(audio) == 0 {
		m.logger.Warn("speech message without audio", "phrase", msg.PhraseID)
		m.events.AudioStatusChanged(domain.AudioStatusEmpty)
		return
	}
	m.audio.Enqueue(domain.SpeechSegment{PhraseID: msg.PhraseID, Audio: audio})
}

func (m *ConnectionManager) handleEndLocked(ch ports.Channel, msg *protocol.EndMessage) {
	reason := "Session ended."
	if msg != nil && strings.TrimSpace(msg.Message) != "" {
		reason = "Reason: " + strings.TrimSpace(msg.Message)
	}
	m.stopTimersLocked()
	m.channel = nil
	m.audio.Stop()
	m.setStateLocked(domain.StatusEnded, reason)
	m.events.SessionEnded(reason)
	m.logger.Info("session ended", "reason", reason)
	go func() {
		_ = ch.Close(closeNormal, "Presentation ended")
	}()
}

func (m *ConnectionManager) handleServerErrorLocked(msg *protocol.ErrorMessage) {
	message := strings.TrimSpace(msg.Message)
	if message == "" {
		message = "Unknown server error"
	}
	m.logger.Warn("server reported error", "message", message)
	if !m.state.Settled() {
		m.setStateLocked(domain.StatusError, message)
	}
	m.events.Notify(domain.NoticeError, message)
	m.events.SessionError(domain.ErrorCodeServer, message)
}

func (m *ConnectionManager) handleClosed(token uint64, ch ports.Channel, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.currentLocked(token, ch) {
		return
	}

	m.channel = nil
	m.cancelVoiceLocked()
	m.audio.Stop()
	if err == nil {
		m.setStateLocked(domain.StatusDisconnected, "Connection closed.")
		return
	}

	m.logger.Warn("connection lost", "error", err)
	m.setStateLocked(domain.StatusError, fmt.Sprintf("Connection lost (%v). Retrying...", err))
	m.events.SessionError(domain.ErrorCodeTransport, err.Error())
	m.scheduleReconnectLocked(token)
}

func (m *ConnectionManager) scheduleReconnectLocked(token uint64) {
	if m.session == nil {
		return
	}
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry = time.AfterFunc(m.cfg.ReconnectInterval, func() { m.reconnect(token) })
}

func (m *ConnectionManager) reconnect(token uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.attempt || m.session == nil || m.state != domain.StatusError {
		return
	}
	m.retry = nil
	m.logger.Info("reconnecting", "session", domain.MaskSessionID(m.session.ID))
	m.startAttemptLocked()
}

func (m *ConnectionManager) reenableVoice(token, seq uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token != m.attempt || seq != m.voiceSeq || m.channel == nil || !m.audioEnabled {
		return
	}
	m.voice = nil
	if err := m.sendLocked(protocol.NewVoiceRequest(true)); err != nil {
		m.logger.Warn("failed to re-enable voice", "error", err)
	}
}

func (m *ConnectionManager) sendLocked(request any) error {
	if m.channel == nil {
		return ErrNotConnected
	}
	payload, err := protocol.Encode(request)
	if err != nil {
		return err
	}
	return m.channel.Send(payload)
}

func (m *ConnectionManager) stopTimersLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	m.cancelVoiceLocked()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
}

func (m *ConnectionManager) cancelVoiceLocked() {
	m.voiceSeq++
	if m.voice != nil {
		m.voice.Stop()
		m.voice = nil
	}
}

func (m *ConnectionManager) detachChannelLocked() ports.Channel {
	ch := m.channel
	m.channel = nil
	return ch
}
