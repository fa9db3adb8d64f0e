// Package browser holds the BrowserInstance data model (spec §3) shared
// by the pool manager, health monitor, recycler and scaler. Only the
// Pool Manager mutates state/owner/useCount directly (always under its
// own lock); the Health Monitor mutates HealthRecord; everyone else reads
// through Snapshot/Health.
package browser

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a BrowserInstance's position in its lifecycle. Transitions are
// restricted to Idle->Active->Idle or Idle->Active->Recycling->Disposed;
// Disposed is terminal.
type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateRecycling State = "recycling"
	StateDisposed  State = "disposed"
)

// Page is an open page/tab within a browser instance.
type Page struct {
	ID     string
	Handle any // driver-specific page handle (e.g. playwright.Page)
}

// Instance is the unit of resource the pool owns (spec §3 BrowserInstance).
// CreatedAt and PID never change after construction and are safe to read
// without the lock; every other field is guarded by mu.
type Instance struct {
	ID        string
	Handle    any // driver-specific browser handle
	CreatedAt time.Time
	PID       *int

	mu          sync.RWMutex
	lastUsedAt  time.Time
	useCount    int64
	state       State
	ownerID     string // session id; set only while state == Active
	lastOwnerID string // most recent owner, retained after release for idempotence checks
	pages       map[string]*Page
	health     HealthRecord
	pendingRecycle bool
}

// NewInstance builds an Idle instance wrapping a freshly launched driver
// handle. Callers must insert it into the pool map under the pool's lock.
func NewInstance(handle any, pid *int) *Instance {
	now := time.Now()
	return &Instance{
		ID:         uuid.NewString(),
		Handle:     handle,
		CreatedAt:  now,
		lastUsedAt: now,
		state:      StateIdle,
		PID:        pid,
		pages:      make(map[string]*Page),
	}
}

// State returns the instance's current lifecycle state.
func (i *Instance) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// SetState transitions the instance's lifecycle state. Callers (the Pool
// Manager) are responsible for only making legal transitions.
func (i *Instance) SetState(s State) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = s
}

// Owner returns the owning session id, empty unless State == Active.
func (i *Instance) Owner() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.ownerID
}

// LastOwner returns the most recent session id to hold this instance
// Active, even after it has since transitioned away from Active. Used to
// tell a repeat release of an already-released (browserId, sessionId)
// pair apart from a session that never owned the instance.
func (i *Instance) LastOwner() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastOwnerID
}

// MarkActive transitions Idle->Active under the instance lock: sets the
// owner, bumps useCount and lastUsedAt in one step so no caller can
// observe a half-updated instance.
func (i *Instance) MarkActive(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = StateActive
	i.ownerID = sessionID
	i.lastOwnerID = sessionID
	i.useCount++
	i.lastUsedAt = time.Now()
}

// MarkIdle transitions Active->Idle, clearing the owner and refreshing
// lastUsedAt (the clock the idle-timeout sweep measures from).
func (i *Instance) MarkIdle() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.state = StateIdle
	i.ownerID = ""
	i.lastUsedAt = time.Now()
}

// UseCount returns the number of times the instance has been handed out.
func (i *Instance) UseCount() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.useCount
}

// LastUsedAt returns the last time the instance transitioned to or from Active.
func (i *Instance) LastUsedAt() time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastUsedAt
}

// PendingRecycle reports whether a recycler decision has marked this
// (Active) instance to be recycled on its next release.
func (i *Instance) PendingRecycle() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.pendingRecycle
}

// SetPendingRecycle flags the instance for recycle-on-release.
func (i *Instance) SetPendingRecycle(v bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.pendingRecycle = v
}

// PageCount returns the number of open pages (invariant d: 0 <= pageCount
// <= maxPagesPerBrowser, enforced by the caller).
func (i *Instance) PageCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.pages)
}

// AddPage records a newly opened page and returns its id.
func (i *Instance) AddPage(handle any) *Page {
	i.mu.Lock()
	defer i.mu.Unlock()
	p := &Page{ID: uuid.NewString(), Handle: handle}
	i.pages[p.ID] = p
	return p
}

// RemovePage removes a tracked page; ok is false if the page was unknown.
func (i *Instance) RemovePage(pageID string) (*Page, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	p, ok := i.pages[pageID]
	if ok {
		delete(i.pages, pageID)
	}
	return p, ok
}

// Page looks up a tracked page by id.
func (i *Instance) Page(pageID string) (*Page, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	p, ok := i.pages[pageID]
	return p, ok
}

// Pages returns a snapshot slice of open pages.
func (i *Instance) Pages() []*Page {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]*Page, 0, len(i.pages))
	for _, p := range i.pages {
		out = append(out, p)
	}
	return out
}

// Health returns the latest recorded health observation.
func (i *Instance) Health() HealthRecord {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.health
}

// SetHealth records a new health observation, bumping or resetting the
// consecutive-unhealthy counter depending on the result. Called by the
// health monitor outside the pool's lock.
func (i *Instance) SetHealth(rec HealthRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	streak := i.health.consecutiveUnhealthy
	i.health = rec
	if rec.Healthy {
		i.health.consecutiveUnhealthy = 0
	} else {
		i.health.consecutiveUnhealthy = streak + 1
	}
}

// Age returns how long the instance has existed.
func (i *Instance) Age() time.Duration {
	return time.Since(i.CreatedAt)
}

// Idle reports how long the instance has sat unused; meaningless while
// State == Active.
func (i *Instance) Idle() time.Duration {
	return time.Since(i.LastUsedAt())
}

// Snapshot is an immutable copy of an instance's observable fields, safe
// to hand to callers outside the pool's lock (listInstances, metrics).
type Snapshot struct {
	ID         string
	State      State
	OwnerID    string
	CreatedAt  time.Time
	LastUsedAt time.Time
	UseCount   int64
	PageCount  int
	PID        *int
}

// Snapshot copies the instance's current observable state.
func (i *Instance) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return Snapshot{
		ID:         i.ID,
		State:      i.state,
		OwnerID:    i.ownerID,
		CreatedAt:  i.CreatedAt,
		LastUsedAt: i.lastUsedAt,
		UseCount:   i.useCount,
		PageCount:  len(i.pages),
		PID:        i.PID,
	}
}
