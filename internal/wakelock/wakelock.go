// Package wakelock keeps the screen awake through the desktop session's screen saver service.
package wakelock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"captionview/internal/ports"
)

const (
	screenSaverService = "org.freedesktop.ScreenSaver"
	screenSaverPath    = dbus.ObjectPath("/org/freedesktop/ScreenSaver")
	appName            = "captionview"
	inhibitReason      = "Following live captions"
)

var ErrUnavailable = errors.New("screen wake lock is not available")

// Inhibitor talks to a screen saver service.
type Inhibitor interface {
	Inhibit(ctx context.Context, app, reason string) (uint32, error)
	UnInhibit(ctx context.Context, cookie uint32) error
	Close() error
}

// Connector opens an Inhibitor on first use.
type Connector func() (Inhibitor, error)

var _ ports.WakeLock = (*Lock)(nil)

// Lock holds at most one inhibition at a time.
type Lock struct {
	connect Connector

	mu        sync.Mutex
	inhibitor Inhibitor
	cookie    uint32
	held      bool
}

// New returns a Lock backed by connect. A nil connector uses the session bus.
func New(connect Connector) *Lock {
	if connect == nil {
		connect = ConnectSessionBus
	}
	return &Lock{connect: connect}
}

func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

func (l *Lock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquireLocked(ctx)
}

func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releaseLocked(ctx)
}

// Toggle flips the lock and returns whether it is now held.
func (l *Lock) Toggle(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		err := l.releaseLocked(ctx)
		return l.held, err
	}
	err := l.acquireLocked(ctx)
	return l.held, err
}

// Close releases any inhibition and drops the bus connection.
func (l *Lock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.releaseLocked(context.Background())
	if l.inhibitor != nil {
		if closeErr := l.inhibitor.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		l.inhibitor = nil
	}
	return err
}

func (l *Lock) acquireLocked(ctx context.Context) error {
	if l.held {
		return nil
	}
	if l.inhibitor == nil {
		inhibitor, err := l.connect()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		l.inhibitor = inhibitor
	}
	cookie, err := l.inhibitor.Inhibit(ctx, appName, inhibitReason)
	if err != nil {
		return fmt.Errorf("failed to acquire wake lock: %w", err)
	}
	l.cookie = cookie
	l.held = true
	return nil
}

func (l *Lock) releaseLocked(ctx context.Context) error {
	if !l.held {
		return nil
	}
	if err := l.inhibitor.UnInhibit(ctx, l.cookie); err != nil {
		return fmt.Errorf("failed to release wake lock: %w", err)
	}
	l.held = false
	l.cookie = 0
	return nil
}

type screenSaver struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// ConnectSessionBus opens a private session bus connection to org.freedesktop.ScreenSaver.
func ConnectSessionBus() (Inhibitor, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &screenSaver{conn: conn, obj: conn.Object(screenSaverService, screenSaverPath)}, nil
}

func (s *screenSaver) Inhibit(ctx context.Context, app, reason string) (uint32, error) {
	var cookie uint32
	call := s.obj.CallWithContext(ctx, screenSaverService+".Inhibit", 0, app, reason)
	if err := call.Store(&cookie); err != nil {
		return 0, err
	}
	return cookie, nil
}

func (s *screenSaver) UnInhibit(ctx context.Context, cookie uint32) error {
	return s.obj.CallWithContext(ctx, screenSaverService+".UnInhibit", 0, cookie).Err
}

func (s *screenSaver) Close() error {
	return s.conn.Close()
}
