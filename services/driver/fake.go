package driver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// fakeHandle is a deterministic stand-in for a real browser process.
type fakeHandle struct {
	id        int64
	connected atomic.Bool
	mu        sync.Mutex
	pages     map[string]struct{}
}

// Fake is an in-memory Driver implementation used by the pool's unit and
// property tests (spec §8). It never touches a real process; launch
// failures, disconnects and slow launches are all controllable so tests
// can exercise the pool's error paths deterministically.
type Fake struct {
	mu sync.Mutex

	nextID        int64
	LaunchErr     error          // if set, every Launch fails with this error
	LaunchDelay   func()         // optional hook invoked synchronously inside Launch
	FailNext      int            // number of subsequent Launch calls to fail
	Disconnected  map[Handle]bool // handles forced to report IsConnected() == false
	LaunchCount   int
	CloseCount    int
}

// NewFake constructs an empty fake driver.
func NewFake() *Fake {
	return &Fake{Disconnected: make(map[Handle]bool)}
}

func (f *Fake) Launch(ctx context.Context, opts LaunchOptions) (Handle, error) {
	f.mu.Lock()
	f.LaunchCount++
	if f.FailNext > 0 {
		f.FailNext--
		f.mu.Unlock()
		return nil, fmt.Errorf("fake launch failure")
	}
	if f.LaunchErr != nil {
		err := f.LaunchErr
		f.mu.Unlock()
		return nil, err
	}
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	if f.LaunchDelay != nil {
		f.LaunchDelay()
	}

	h := &fakeHandle{id: id, pages: make(map[string]struct{})}
	h.connected.Store(true)
	return h, nil
}

func (f *Fake) Close(ctx context.Context, h Handle) error {
	f.mu.Lock()
	f.CloseCount++
	f.mu.Unlock()
	fh, ok := h.(*fakeHandle)
	if !ok {
		return fmt.Errorf("invalid handle")
	}
	fh.connected.Store(false)
	return nil
}

func (f *Fake) IsConnected(ctx context.Context, h Handle) bool {
	f.mu.Lock()
	forced, marked := f.Disconnected[h]
	f.mu.Unlock()
	if marked {
		return !forced
	}
	fh, ok := h.(*fakeHandle)
	if !ok {
		return false
	}
	return fh.connected.Load()
}

// SetDisconnected forces IsConnected(h) to return false (or true again
// when disconnected == false) regardless of the handle's real state.
func (f *Fake) SetDisconnected(h Handle, disconnected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Disconnected[h] = disconnected
}

func (f *Fake) Version(ctx context.Context, h Handle) (string, error) {
	return "fake/1.0", nil
}

func (f *Fake) Pages(ctx context.Context, h Handle) ([]PageHandle, error) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return nil, fmt.Errorf("invalid handle")
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()
	out := make([]PageHandle, 0, len(fh.pages))
	for id := range fh.pages {
		out = append(out, id)
	}
	return out, nil
}

func (f *Fake) NewPage(ctx context.Context, h Handle) (PageHandle, error) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return nil, fmt.Errorf("invalid handle")
	}
	fh.mu.Lock()
	defer fh.mu.Unlock()
	id := fmt.Sprintf("page-%d-%d", fh.id, len(fh.pages)+1)
	fh.pages[id] = struct{}{}
	return id, nil
}

func (f *Fake) ClosePage(ctx context.Context, p PageHandle) error {
	return nil
}

func (f *Fake) PID(h Handle) *int { return nil }

// Goto, Evaluate and Screenshot satisfy PageDriver deterministically so
// the commands package can be unit-tested without a real browser.
func (f *Fake) Goto(ctx context.Context, p PageHandle, url string) error {
	return nil
}

func (f *Fake) Evaluate(ctx context.Context, p PageHandle, script string) (any, error) {
	return script, nil
}

func (f *Fake) Screenshot(ctx context.Context, p PageHandle, fullPage bool) ([]byte, error) {
	return []byte("fake-png-bytes"), nil
}

var _ Driver = (*Fake)(nil)
var _ PageDriver = (*Fake)(nil)
