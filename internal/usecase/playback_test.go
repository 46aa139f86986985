package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"captionview/internal/domain"
	"captionview/internal/ports"
)

func TestAudioQueuePlaysFIFOOneAtATime(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{}
	events := &fakeEventSink{}
	q := NewAudioQueue(player, events, nil)
	q.SetEnabled(true)

	q.Enqueue(domain.SpeechSegment{PhraseID: "1", Audio: []byte("one")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "2", Audio: []byte("two")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "3", Audio: []byte("three")})

	ids := []string{"1", "2", "3"}
	for i, want := range []string{"one", "two", "three"} {
		waitFor(t, "playback "+want, func() bool { return player.startedCount() == i+1 })
		pb := player.playback(i)
		if string(pb.wav) != want {
			t.Fatalf("playback %d got %q want %q", i, pb.wav, want)
		}
		waitFor(t, "playing event", func() bool {
			id, ok := q.Playing()
			return ok && id == ids[i]
		})
		pb.finish(nil)
	}

	waitFor(t, "queue idle", func() bool {
		_, playing := q.Playing()
		return !playing
	})
	if player.maxConcurrent() != 1 {
		t.Fatalf("expected one playback at a time, got %d", player.maxConcurrent())
	}

	marks := events.snapshotPlaying()
	if len(marks) != 6 {
		t.Fatalf("expected start and stop marks for each phrase, got %+v", marks)
	}
	for i, id := range ids {
		if marks[2*i] != (playingEvent{id: id, playing: true}) || marks[2*i+1] != (playingEvent{id: id, playing: false}) {
			t.Fatalf("unexpected marks: %+v", marks)
		}
	}
}

func TestAudioQueueHoldsSegmentsUntilEnabled(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{}
	q := NewAudioQueue(player, &fakeEventSink{}, nil)

	q.Enqueue(domain.SpeechSegment{PhraseID: "1", Audio: []byte("one")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "2", Audio: nil})
	if q.Len() != 1 || player.startedCount() != 0 {
		t.Fatalf("expected one stored segment and no playback, len=%d started=%d", q.Len(), player.startedCount())
	}

	q.SetEnabled(true)
	waitFor(t, "playback after enabling", func() bool { return player.startedCount() == 1 })
}

func TestAudioQueueDisableStopsAndDiscards(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{}
	events := &fakeEventSink{}
	q := NewAudioQueue(player, events, nil)
	q.SetEnabled(true)

	q.Enqueue(domain.SpeechSegment{PhraseID: "1", Audio: []byte("one")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "2", Audio: []byte("two")})
	waitFor(t, "first playback", func() bool {
		_, ok := q.Playing()
		return ok && player.startedCount() == 1
	})
	waitFor(t, "playing mark", func() bool { return len(events.snapshotPlaying()) == 1 })

	q.SetEnabled(false)
	if q.Len() != 0 {
		t.Fatalf("expected queued segments to be discarded")
	}
	if player.playback(0).stopCount() != 1 {
		t.Fatalf("expected current playback to be stopped")
	}

	q.SetEnabled(true)
	if player.startedCount() != 1 {
		t.Fatalf("expected discarded segment not to play")
	}

	statuses := events.snapshotAudio()
	if statuses[len(statuses)-2] != domain.AudioStatusOff || statuses[len(statuses)-1] != domain.AudioStatusReady {
		t.Fatalf("unexpected audio statuses: %v", statuses)
	}
}

func TestAudioQueueStartErrorMovesOn(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{fail: func(wav []byte) error {
		if string(wav) == "bad" {
			return errors.New("device busy")
		}
		return nil
	}}
	events := &fakeEventSink{}
	q := NewAudioQueue(player, events, nil)
	q.SetEnabled(true)

	q.Enqueue(domain.SpeechSegment{PhraseID: "1", Audio: []byte("bad")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "2", Audio: []byte("good")})

	waitFor(t, "second segment", func() bool { return player.startedCount() == 1 })
	if string(player.playback(0).wav) != "good" {
		t.Fatalf("expected the good segment to play")
	}
	if !containsAudioStatus(events.snapshotAudio(), domain.AudioStatusError) {
		t.Fatalf("expected audio error status")
	}
}

func TestAudioQueuePlaybackErrorMovesOn(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{}
	events := &fakeEventSink{}
	q := NewAudioQueue(player, events, nil)
	q.SetEnabled(true)

	q.Enqueue(domain.SpeechSegment{PhraseID: "1", Audio: []byte("corrupt")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "2", Audio: []byte("fine")})

	waitFor(t, "first playback", func() bool { return player.startedCount() == 1 })
	player.playback(0).finish(errors.New("decode failed"))
	waitFor(t, "second playback", func() bool { return player.startedCount() == 2 })

	if !containsAudioStatus(events.snapshotAudio(), domain.AudioStatusError) {
		t.Fatalf("expected audio error status")
	}
}

func TestAudioQueueStopClearsEverything(t *testing.T) {
	t.Parallel()

	player := &fakePlayer{}
	q := NewAudioQueue(player, &fakeEventSink{}, nil)
	q.SetEnabled(true)
	q.Enqueue(domain.SpeechSegment{PhraseID: "1", Audio: []byte("one")})
	q.Enqueue(domain.SpeechSegment{PhraseID: "2", Audio: []byte("two")})
	waitFor(t, "first playback", func() bool { return player.startedCount() == 1 })

	q.Stop()
	if _, playing := q.Playing(); playing || q.Len() != 0 {
		t.Fatalf("expected idle queue after stop")
	}
	if !q.Enabled() {
		t.Fatalf("stop must not disable audio")
	}

	q.Enqueue(domain.SpeechSegment{PhraseID: "3", Audio: []byte("three")})
	waitFor(t, "playback after stop", func() bool { return player.startedCount() == 2 })
	if string(player.playback(1).wav) != "three" {
		t.Fatalf("expected new segment after stop")
	}
}

func containsAudioStatus(statuses []domain.AudioStatus, want domain.AudioStatus) bool {
	for _, status := range statuses {
		if status == want {
			return true
		}
	}
	return false
}

type fakePlayer struct {
	mu        sync.Mutex
	fail      func(wav []byte) error
	started   []*fakePlayback
	active    int
	maxActive int
}

func (p *fakePlayer) Play(_ context.Context, wav []byte) (ports.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		if err := p.fail(wav); err != nil {
			return nil, err
		}
	}
	pb := &fakePlayback{player: p, wav: wav, done: make(chan struct{})}
	p.started = append(p.started, pb)
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	return pb, nil
}

func (p *fakePlayer) startedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.started)
}

func (p *fakePlayer) playback(i int) *fakePlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started[i]
}

func (p *fakePlayer) maxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxActive
}

type fakePlayback struct {
	player *fakePlayer
	wav    []byte
	done   chan struct{}
	once   sync.Once
	err    error
	stops  int
}

func (b *fakePlayback) Done() <-chan struct{} { return b.done }

func (b *fakePlayback) Err() error { return b.err }

func (b *fakePlayback) Stop() error {
	b.player.mu.Lock()
	b.stops++
	b.player.mu.Unlock()
	b.finish(nil)
	return nil
}

func (b *fakePlayback) finish(err error) {
	b.once.Do(func() {
		b.err = err
		b.player.mu.Lock()
		b.player.active--
		b.player.mu.Unlock()
		close(b.done)
	})
}

func (b *fakePlayback) stopCount() int {
	b.player.mu.Lock()
	defer b.player.mu.Unlock()
	return b.stops
}

