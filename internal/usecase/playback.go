package usecase

import (
	"context"
	"log/slog"
	"sync"

	"captionview/internal/domain"
	"captionview/internal/ports"
)

// AudioQueue plays synthesized speech strictly in arrival order, one segment at a time.
type AudioQueue struct {
	player ports.Player
	events ports.EventSink
	logger *slog.Logger

	mu      sync.Mutex
	enabled bool
	pending []domain.SpeechSegment
	current *queuedPlayback
}

type queuedPlayback struct {
	phraseID string
	playback ports.Playback
	cancel   context.CancelFunc
}

func NewAudioQueue(player ports.Player, events ports.EventSink, logger *slog.Logger) *AudioQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioQueue{player: player, events: events, logger: logger.With("component", "audio")}
}

// Enqueue stores a segment and starts playback when the queue is idle and enabled.
func (q *AudioQueue) Enqueue(segment domain.SpeechSegment) {
	if len(segment.Audio) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, segment)
	q.drainLocked()
}

// SetEnabled toggles playback. Disabling stops the current segment and discards the rest.
func (q *AudioQueue) SetEnabled(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enabled == enabled {
		return
	}
	q.enabled = enabled
	if !enabled {
		q.stopLocked()
		q.events.AudioStatusChanged(domain.AudioStatusOff)
		return
	}
	q.events.AudioStatusChanged(domain.AudioStatusReady)
	q.drainLocked()
}

func (q *AudioQueue) Enabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.enabled
}

// Stop halts the current segment and clears everything queued.
func (q *AudioQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	hadWork := q.current != nil || len(q.pending) > 0
	q.stopLocked()
	if hadWork && q.enabled {
		q.events.AudioStatusChanged(domain.AudioStatusReady)
	}
}

// Len is the number of segments waiting behind the one playing.
func (q *AudioQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Playing returns the phrase id currently being played, if any.
func (q *AudioQueue) Playing() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return "", false
	}
	return q.current.phraseID, true
}

func (q *AudioQueue) stopLocked() {
	q.pending = nil
	current := q.current
	q.current = nil
	if current == nil {
		return
	}
	if current.playback != nil {
		if err := current.playback.Stop(); err != nil {
			q.logger.Warn("failed to stop playback", "phrase", current.phraseID, "error", err)
		}
		q.events.PhrasePlaying(current.phraseID, false)
	}
	current.cancel()
}

func (q *AudioQueue) drainLocked() {
	if q.current != nil || !q.enabled || len(q.pending) == 0 {
		return
	}
	segment := q.pending[0]
	q.pending = q.pending[1:]

	ctx, cancel := context.WithCancel(context.Background())
	item := &queuedPlayback{phraseID: segment.PhraseID, cancel: cancel}
	q.current = item
	go q.start(ctx, item, segment.Audio)
}

func (q *AudioQueue) start(ctx context.Context, item *queuedPlayback, audio []byte) {
	playback, err := q.player.Play(ctx, audio)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != item {
		if playback != nil {
			_ = playback.Stop()
		}
		return
	}
	if err != nil {
		q.logger.Warn("failed to start playback", "phrase", item.phraseID, "error", err)
		q.current = nil
		item.cancel()
		q.events.AudioStatusChanged(domain.AudioStatusError)
		q.drainLocked()
		return
	}

	item.playback = playback
	q.events.PhrasePlaying(item.phraseID, true)
	q.events.AudioStatusChanged(domain.AudioStatusPlaying)
	go q.await(item)
}

func (q *AudioQueue) await(item *queuedPlayback) {
	<-item.playback.Done()
	err := item.playback.Err()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current != item {
		return
	}
	q.current = nil
	item.cancel()
	q.events.PhrasePlaying(item.phraseID, false)
	if err != nil {
		q.logger.Warn("playback failed", "phrase", item.phraseID, "error", err)
		q.events.AudioStatusChanged(domain.AudioStatusError)
	} else if len(q.pending) == 0 {
		q.events.AudioStatusChanged(domain.AudioStatusReady)
	}
	q.drainLocked()
}
