package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"captionview/internal/ports"
)

// DefaultPlayerCommand reads a WAV clip on stdin and exits when it finishes.
const DefaultPlayerCommand = "ffplay"

var defaultPlayerArgs = []string{"-nodisp", "-autoexit", "-hide_banner", "-loglevel", "error", "-i", "-"}

// CommandPlayer pipes each clip into an external player process.
type CommandPlayer struct {
	command string
	args    []string
}

// NewCommandPlayer runs command with ffplay style arguments, or with args when given.
func NewCommandPlayer(command string, args ...string) *CommandPlayer {
	if strings.TrimSpace(command) == "" {
		command = DefaultPlayerCommand
	}
	if len(args) == 0 {
		args = defaultPlayerArgs
	}
	return &CommandPlayer{command: command, args: args}
}

func (p *CommandPlayer) Play(ctx context.Context, wav []byte) (ports.Playback, error) {
	if len(wav) == 0 {
		return nil, ErrEmptyClip
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(wav)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", p.command, err)
	}

	pb := &processPlayback{
		process: cmd.Process,
		stderr:  stderr,
		done:    make(chan struct{}),
	}
	go func() {
		pb.finish(cmd.Wait())
	}()
	return pb, nil
}

type processPlayback struct {
	process *os.Process
	stderr  *lockedBuffer
	done    chan struct{}

	mu      sync.Mutex
	stopped bool
	err     error

	stopOnce sync.Once
}

func (b *processPlayback) finish(waitErr error) {
	b.mu.Lock()
	if waitErr != nil && !b.stopped {
		detail := strings.TrimSpace(b.stderr.String())
		if detail != "" {
			b.err = fmt.Errorf("player failed: %w: %s", waitErr, detail)
		} else {
			b.err = fmt.Errorf("player failed: %w", waitErr)
		}
	}
	b.mu.Unlock()
	close(b.done)
}

func (b *processPlayback) Done() <-chan struct{} { return b.done }

func (b *processPlayback) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Stop interrupts the player and kills it when it does not exit promptly.
func (b *processPlayback) Stop() error {
	var stopErr error
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()

		select {
		case <-b.done:
			return
		default:
		}

		if err := b.process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			stopErr = fmt.Errorf("failed to interrupt player: %w", err)
		}
		select {
		case <-b.done:
		case <-time.After(1200 * time.Millisecond):
			_ = b.process.Kill()
			<-b.done
		}
	})
	return stopErr
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}
