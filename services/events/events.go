// Package events defines the typed Observer contract (design note §9:
// "Event emitter -> explicit listener interfaces"). Components register
// observers once at initialization instead of subscribing to an ad-hoc
// pub/sub bus.
package events

import "time"

// Payload is the envelope every pool/browser event carries (spec §6
// "Produced: Events").
type Payload struct {
	BrowserID string
	SessionID string
	At        time.Time
	Reason    string
	Details   map[string]any
}

// Observer receives lifecycle, scaling and alert notifications from the
// pool subsystem. Implementations must not block — the pool calls these
// synchronously from acquire/release/maintenance paths — and must not
// call back into the pool.
type Observer interface {
	OnBrowserCreated(Payload)
	OnBrowserAcquired(Payload)
	OnBrowserReleased(Payload)
	OnBrowserRemoved(Payload)
	OnBrowserRestarted(Payload)
	OnBrowserRecycled(Payload)
	OnPoolScaled(Payload)
	OnPoolAlert(Payload)
}

// NopObserver implements Observer with no-ops; embed it to implement only
// the callbacks you care about.
type NopObserver struct{}

func (NopObserver) OnBrowserCreated(Payload)   {}
func (NopObserver) OnBrowserAcquired(Payload)  {}
func (NopObserver) OnBrowserReleased(Payload)  {}
func (NopObserver) OnBrowserRemoved(Payload)   {}
func (NopObserver) OnBrowserRestarted(Payload) {}
func (NopObserver) OnBrowserRecycled(Payload)  {}
func (NopObserver) OnPoolScaled(Payload)       {}
func (NopObserver) OnPoolAlert(Payload)        {}

// Multi fans a single call out to every registered Observer, in
// registration order. It is itself an Observer so the pool only ever
// holds one.
type Multi struct {
	observers []Observer
}

// NewMulti builds a fan-out Observer over the given observers.
func NewMulti(observers ...Observer) *Multi {
	return &Multi{observers: observers}
}

// Register appends an observer at runtime (e.g. a WS client subscribing).
func (m *Multi) Register(o Observer) {
	m.observers = append(m.observers, o)
}

func (m *Multi) OnBrowserCreated(p Payload) {
	for _, o := range m.observers {
		o.OnBrowserCreated(p)
	}
}
func (m *Multi) OnBrowserAcquired(p Payload) {
	for _, o := range m.observers {
		o.OnBrowserAcquired(p)
	}
}
func (m *Multi) OnBrowserReleased(p Payload) {
	for _, o := range m.observers {
		o.OnBrowserReleased(p)
	}
}
func (m *Multi) OnBrowserRemoved(p Payload) {
	for _, o := range m.observers {
		o.OnBrowserRemoved(p)
	}
}
func (m *Multi) OnBrowserRestarted(p Payload) {
	for _, o := range m.observers {
		o.OnBrowserRestarted(p)
	}
}
func (m *Multi) OnBrowserRecycled(p Payload) {
	for _, o := range m.observers {
		o.OnBrowserRecycled(p)
	}
}
func (m *Multi) OnPoolScaled(p Payload) {
	for _, o := range m.observers {
		o.OnPoolScaled(p)
	}
}
func (m *Multi) OnPoolAlert(p Payload) {
	for _, o := range m.observers {
		o.OnPoolAlert(p)
	}
}

var _ Observer = (*Multi)(nil)
