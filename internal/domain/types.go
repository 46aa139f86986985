package domain

import "time"

// ConnectionStatus models the viewer's connection lifecycle.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusError        ConnectionStatus = "error"
	StatusEnded        ConnectionStatus = "ended"
)

// Open reports whether a channel may be in flight for this status.
func (s ConnectionStatus) Open() bool {
	return s == StatusConnecting || s == StatusConnected
}

// Settled reports whether the session was closed on purpose, by the user or the server.
func (s ConnectionStatus) Settled() bool {
	return s == StatusDisconnected || s == StatusEnded
}

// ErrorCode identifies user-facing failures.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodeValidation ErrorCode = "validation"
	ErrorCodeHandshake  ErrorCode = "handshake"
	ErrorCodeTransport  ErrorCode = "transport"
	ErrorCodeServer     ErrorCode = "server"
	ErrorCodeAudio      ErrorCode = "audio"
	ErrorCodeWakeLock   ErrorCode = "wake_lock"
	ErrorCodeClipboard  ErrorCode = "clipboard"
	ErrorCodePrefs      ErrorCode = "preferences"
)

// AudioStatus is the short playback indicator shown next to the audio toggle.
type AudioStatus string

const (
	AudioStatusOff     AudioStatus = "off"
	AudioStatusReady   AudioStatus = "ready"
	AudioStatusPlaying AudioStatus = "playing"
	AudioStatusError   AudioStatus = "error"
	AudioStatusEmpty   AudioStatus = "empty"
)

// NoticeKind classifies transient notifications.
type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Session identifies the remote presentation the viewer attends.
type Session struct {
	ID       string
	Passcode string
	Language string
}

// Phrase is one unit of translated speech, updated in place until final.
type Phrase struct {
	ID          string    `json:"id"`
	SpeakerID   string    `json:"speakerId"`
	SpeakerName string    `json:"speakerName,omitempty"`
	Text        string    `json:"text"`
	IsFinal     bool      `json:"isFinal"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

// SpeakerLabel is the display name, falling back to the speaker id suffix.
func (p Phrase) SpeakerLabel() string {
	if p.SpeakerName != "" {
		return p.SpeakerName
	}
	id := p.SpeakerID
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	return "Speaker " + id
}

// SpeechSegment carries synthesized audio (WAV container) for one phrase.
type SpeechSegment struct {
	PhraseID string
	Audio    []byte
}

// Status summarizes the connection for the UI and the remote API.
type Status struct {
	State        ConnectionStatus `json:"state"`
	Message      string           `json:"message,omitempty"`
	Session      string           `json:"session,omitempty"`
	Language     string           `json:"language"`
	AudioEnabled bool             `json:"audioEnabled"`
}

// PhraseUpdate describes how one phrase message changed the transcript.
// Follow is true when the view should stay pinned to the live edge.
type PhraseUpdate struct {
	Phrase  Phrase   `json:"phrase"`
	Speaker string   `json:"speaker"`
	Created bool     `json:"created"`
	Evicted []string `json:"evicted,omitempty"`
	Follow  bool     `json:"follow"`
	Pending int      `json:"pending"`
}
