package wakelock

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeInhibitor struct {
	next       uint32
	active     map[uint32]bool
	inhibitErr error
	closed     bool
}

func (f *fakeInhibitor) Inhibit(_ context.Context, app, reason string) (uint32, error) {
	if f.inhibitErr != nil {
		return 0, f.inhibitErr
	}
	if app == "" || reason == "" {
		return 0, errors.New("missing app or reason")
	}
	f.next++
	f.active[f.next] = true
	return f.next, nil
}

func (f *fakeInhibitor) UnInhibit(_ context.Context, cookie uint32) error {
	if !f.active[cookie] {
		return errors.New("unknown cookie")
	}
	delete(f.active, cookie)
	return nil
}

func (f *fakeInhibitor) Close() error {
	f.closed = true
	return nil
}

func TestLockToggleAcquiresAndReleases(t *testing.T) {
	t.Parallel()

	fake := &fakeInhibitor{active: map[uint32]bool{}}
	connects := 0
	lock := New(func() (Inhibitor, error) {
		connects++
		return fake, nil
	})

	held, err := lock.Toggle(context.Background())
	if err != nil || !held {
		t.Fatalf("expected held lock, got held=%v err=%v", held, err)
	}
	if len(fake.active) != 1 {
		t.Fatalf("expected one inhibition, got %d", len(fake.active))
	}
	if err := lock.Acquire(context.Background()); err != nil || len(fake.active) != 1 {
		t.Fatalf("expected acquire to be idempotent")
	}

	held, err = lock.Toggle(context.Background())
	if err != nil || held {
		t.Fatalf("expected released lock, got held=%v err=%v", held, err)
	}
	if len(fake.active) != 0 {
		t.Fatalf("expected inhibition to be released")
	}

	if _, err := lock.Toggle(context.Background()); err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	if connects != 1 {
		t.Fatalf("expected the bus connection to be reused, got %d connects", connects)
	}

	if err := lock.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if len(fake.active) != 0 || !fake.closed {
		t.Fatalf("expected close to release and disconnect")
	}
}

func TestLockUnavailableBus(t *testing.T) {
	t.Parallel()

	lock := New(func() (Inhibitor, error) { return nil, errors.New("no session bus") })
	if _, err := lock.Toggle(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if lock.Held() {
		t.Fatalf("lock must not be held after a failure")
	}
}

func TestLockInhibitFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeInhibitor{active: map[uint32]bool{}, inhibitErr: errors.New("denied")}
	lock := New(func() (Inhibitor, error) { return fake, nil })
	if err := lock.Acquire(context.Background()); err == nil {
		t.Fatalf("expected acquire error")
	}
	if lock.Held() {
		t.Fatalf("lock must not be held after a failure")
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release of an unheld lock should be a no-op, got %v", err)
	}
}

func TestLockConcurrentTogglesAlternate(t *testing.T) {
	t.Parallel()

	fake := &fakeInhibitor{active: map[uint32]bool{}}
	lock := New(func() (Inhibitor, error) { return fake, nil })

	const toggles = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		acquire int
	)
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			held, err := lock.Toggle(context.Background())
			if err != nil {
				t.Errorf("toggle failed: %v", err)
				return
			}
			if held {
				mu.Lock()
				acquire++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if acquire != toggles/2 {
		t.Fatalf("expected every toggle to flip the lock, got %d acquisitions for %d toggles", acquire, toggles)
	}
	if lock.Held() || len(fake.active) != 0 {
		t.Fatalf("expected an even number of toggles to leave the lock released")
	}
	if fake.next != toggles/2 {
		t.Fatalf("expected %d inhibit calls, got %d", toggles/2, fake.next)
	}
}
