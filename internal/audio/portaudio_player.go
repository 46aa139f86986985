package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"captionview/internal/ports"
)

const framesPerBuffer = 1024

// PortAudioPlayer plays speech clips on the default output device.
type PortAudioPlayer struct {
	mu          sync.Mutex
	initialized bool
	closed      bool
}

func NewPortAudioPlayer() *PortAudioPlayer {
	return &PortAudioPlayer{}
}

// initLocked initializes PortAudio on first playback. A failure is retried on the next clip.
func (p *PortAudioPlayer) initLocked() error {
	if p.initialized {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	p.initialized = true
	return nil
}

// Close releases PortAudio. Playbacks still running are cut off.
func (p *PortAudioPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if !p.initialized {
		return nil
	}
	p.initialized = false
	return portaudio.Terminate()
}

func (p *PortAudioPlayer) Play(ctx context.Context, data []byte) (ports.Playback, error) {
	clip, err := Decode(data)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("audio player is closed")
	}
	if err := p.initLocked(); err != nil {
		return nil, err
	}

	pb := &streamPlayback{
		cursor:   &clipCursor{samples: clip.Samples},
		finished: make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	stream, err := portaudio.OpenDefaultStream(0, clip.Channels, float64(clip.SampleRate), framesPerBuffer, pb.fill)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to start audio stream: %w", err)
	}
	pb.stream = stream
	go pb.run(ctx)
	return pb, nil
}

type streamPlayback struct {
	stream *portaudio.Stream
	cursor *clipCursor

	finishOnce sync.Once
	finished   chan struct{}
	stopOnce   sync.Once
	stop       chan struct{}
	done       chan struct{}
	err        error
}

func (b *streamPlayback) fill(out []float32) {
	if b.cursor.fill(out) {
		b.finishOnce.Do(func() { close(b.finished) })
	}
}

func (b *streamPlayback) run(ctx context.Context) {
	defer close(b.done)

	select {
	case <-b.finished:
	case <-b.stop:
	case <-ctx.Done():
	}
	if err := b.stream.Stop(); err != nil {
		b.err = fmt.Errorf("failed to stop audio stream: %w", err)
	}
	if err := b.stream.Close(); err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to close audio stream: %w", err)
	}
}

func (b *streamPlayback) Done() <-chan struct{} { return b.done }

func (b *streamPlayback) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

func (b *streamPlayback) Stop() error {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.done
	return b.err
}

// clipCursor feeds interleaved samples to the output callback and pads the tail with silence.
type clipCursor struct {
	samples []float32
	pos     int
}

// fill copies the next samples into out. It returns true once a callback finds nothing left,
// so the final buffer has been handed to the device before playback is reported done.
func (c *clipCursor) fill(out []float32) bool {
	drained := c.pos >= len(c.samples)
	n := copy(out, c.samples[c.pos:])
	c.pos += n
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return drained
}
