package ports

import (
	"context"

	"captionview/internal/domain"
)

// Channel is an open message channel to the translation service.
type Channel interface {
	// Send writes one text frame.
	Send(payload []byte) error
	// Messages yields inbound text frames in arrival order and is closed when the channel ends.
	Messages() <-chan []byte
	// Wait blocks until the channel ends. A nil result means a clean close.
	Wait() error
	// Close performs a closing handshake with code and reason, then drops the connection.
	Close(code int, reason string) error
}

// Dialer opens channels to the translation service.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// Playback is one in-flight speech segment.
type Playback interface {
	// Done is closed when playback ends, naturally or after Stop.
	Done() <-chan struct{}
	// Err reports a decode or device failure once Done is closed.
	Err() error
	Stop() error
}

// Player starts playback of WAV encoded audio.
type Player interface {
	Play(ctx context.Context, wav []byte) (Playback, error)
}

// TextFilter rewrites translated text before it is displayed.
type TextFilter interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// WakeLock keeps the display awake while held.
type WakeLock interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
	// Toggle flips the lock and reports whether it is now held.
	Toggle(ctx context.Context) (bool, error)
	Held() bool
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	ConnectionChanged(status domain.Status)
	PhraseUpdated(update domain.PhraseUpdate)
	PhrasePlaying(phraseID string, playing bool)
	AudioStatusChanged(status domain.AudioStatus)
	PendingMessagesChanged(count int)
	HeaderCollapsedChanged(collapsed bool)
	SessionEnded(reason string)
	Notify(kind domain.NoticeKind, message string)
	SessionError(code domain.ErrorCode, detail string)
}
