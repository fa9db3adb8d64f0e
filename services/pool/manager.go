package pool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"browsergate/errors"
	"browsergate/logger"
	"browsergate/models/browser"
	"browsergate/services/circuitbreaker"
	"browsergate/services/driver"
	"browsergate/services/events"
	"browsergate/services/metrics"
)

// Manager is the Browser Pool (spec §4.1). It exclusively owns
// BrowserInstance lifetimes; every other component (health monitor,
// recycler, scaler, maintenance loop) either reads Instances()/Snapshot
// data or calls one of Manager's narrow mutation entry points
// (RecycleNow, DestroyIdleOlderThan, LaunchOne, RecycleLeastUtilizedIdle).
type Manager struct {
	cfg      Config
	drv      driver.Driver
	breaker  *circuitbreaker.Breaker
	observer events.Observer
	metrics  *metrics.Collector
	workers  []Runner

	mu        sync.Mutex
	instances map[string]*browser.Instance
	waiters   waiterQueue
	seq       uint64
	reserved  int // launch reservation slots not yet in instances

	shuttingDown bool
	initialized  bool
	cancelWork   context.CancelFunc
	wg           sync.WaitGroup
}

// New builds a Manager. initialize() must be called before Acquire.
func New(cfg Config, drv driver.Driver, breaker *circuitbreaker.Breaker, observer events.Observer, collector *metrics.Collector, opts ...Option) *Manager {
	if observer == nil {
		observer = events.NopObserver{}
	}
	m := &Manager{
		cfg:       cfg,
		drv:       drv,
		breaker:   breaker,
		observer:  observer,
		metrics:   collector,
		instances: make(map[string]*browser.Instance),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize starts the registered background workers. Idempotent; a
// second call fails with AlreadyInitialized (spec §4.1).
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return errors.AlreadyInitialized("pool already initialized")
	}
	m.initialized = true
	m.mu.Unlock()

	workCtx, cancel := context.WithCancel(ctx)
	m.cancelWork = cancel
	for _, w := range m.workers {
		m.wg.Add(1)
		go func(r Runner) {
			defer m.wg.Done()
			r.Run(workCtx)
		}(w)
	}
	return nil
}

// Acquire returns an instance owned by sessionID, per the spec §4.1
// acquisition algorithm, guarded by the circuit breaker (§4.5).
func (m *Manager) Acquire(ctx context.Context, sessionID string, deadline time.Time) (*browser.Instance, error) {
	result, err := m.breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		return m.acquire(ctx, sessionID, deadline)
	})
	if err != nil {
		return nil, err
	}
	return result.(*browser.Instance), nil
}

func (m *Manager) acquire(ctx context.Context, sessionID string, deadline time.Time) (*browser.Instance, error) {
	stop := m.metrics.Timer(metrics.SeriesAcquireLatency)
	defer stop()

	if deadline.IsZero() {
		deadline = time.Now().Add(m.cfg.AcquisitionTimeout)
	}

	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return nil, errors.ShuttingDown("pool is shutting down")
	}

	if m.cfg.MaxBrowsers <= 0 {
		m.mu.Unlock()
		return nil, errors.QueueFull("pool configured with maxBrowsers=0, all acquires rejected")
	}

	if inst := m.pickIdleLocked(); inst != nil {
		m.mu.Unlock()
		inst.MarkActive(sessionID)
		m.observer.OnBrowserAcquired(events.Payload{BrowserID: inst.ID, SessionID: sessionID, At: time.Now()})
		return inst, nil
	}

	if len(m.instances)+m.reserved < m.cfg.MaxBrowsers {
		m.reserved++
		m.mu.Unlock()

		inst, err := m.launch(ctx)

		m.mu.Lock()
		m.reserved--
		if err != nil {
			m.mu.Unlock()
			m.metrics.Observe(metrics.SeriesErrorRate, 1)
			return nil, err
		}
		m.instances[inst.ID] = inst
		m.mu.Unlock()

		inst.MarkActive(sessionID)
		m.observer.OnBrowserCreated(events.Payload{BrowserID: inst.ID, At: time.Now()})
		m.observer.OnBrowserAcquired(events.Payload{BrowserID: inst.ID, SessionID: sessionID, At: time.Now()})
		return inst, nil
	}

	if m.waiters.len() >= m.cfg.MaxQueueLength {
		m.mu.Unlock()
		return nil, errors.QueueFull("acquisition queue is full")
	}

	m.seq++
	w := &waiter{
		sessionID: sessionID,
		arrival:   time.Now(),
		seq:       m.seq,
		deadline:  deadline,
		result:    make(chan waiterResult, 1),
	}
	m.waiters.push(w)
	qlen := m.waiters.len()
	m.mu.Unlock()
	m.metrics.Observe(metrics.SeriesQueueLength, float64(qlen))

	return m.awaitWaiter(ctx, w)
}

func (m *Manager) awaitWaiter(ctx context.Context, w *waiter) (*browser.Instance, error) {
	wait := time.Until(w.deadline)
	if wait < 0 {
		wait = 0
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case res := <-w.result:
		if res.err != nil {
			return nil, res.err
		}
		m.metrics.Observe(metrics.SeriesQueueWaitTime, float64(time.Since(w.arrival).Milliseconds()))
		return res.instance, nil
	case <-timer.C:
		m.removeWaiter(w)
		return nil, errors.Timeout("acquire deadline elapsed while queued")
	case <-ctx.Done():
		m.removeWaiter(w)
		return nil, errors.Timeout("acquire canceled while queued")
	}
}

// Release transitions an Active instance back to Idle, or to Recycling
// if it met a recycle trigger (spec §4.1 "Recycle-on-release check").
func (m *Manager) Release(browserID, sessionID string) error {
	stop := m.metrics.Timer(metrics.SeriesReleaseLatency)
	defer stop()

	m.mu.Lock()
	inst, ok := m.instances[browserID]
	m.mu.Unlock()
	if !ok {
		return errors.NotFound("browser not found: " + browserID)
	}
	if inst.State() != browser.StateActive {
		if inst.LastOwner() == sessionID {
			return errors.NotFound("browser already released: " + browserID)
		}
		return errors.UnauthorizedSession("session does not own this browser")
	}
	if inst.Owner() != sessionID {
		return errors.UnauthorizedSession("session does not own this browser")
	}

	if m.needsRecycle(inst) {
		inst.SetState(browser.StateRecycling)
		m.destroyInstance(context.Background(), inst)
		m.observer.OnBrowserRecycled(events.Payload{BrowserID: inst.ID, At: time.Now(), Reason: "recycle-on-release"})
		m.fillWaiters()
		return nil
	}

	inst.MarkIdle()
	m.observer.OnBrowserReleased(events.Payload{BrowserID: inst.ID, SessionID: sessionID, At: time.Now()})
	m.fillWaiters()
	return nil
}

// needsRecycle implements spec §4.1's recycle-on-release predicate.
func (m *Manager) needsRecycle(inst *browser.Instance) bool {
	if inst.PendingRecycle() {
		return true
	}
	if inst.UseCount() >= m.cfg.RecycleAfterUses {
		return true
	}
	if inst.Age() >= m.cfg.MaxAge {
		return true
	}
	h := inst.Health()
	if !h.LastCheckAt.IsZero() && !h.Healthy {
		return true
	}
	return false
}

// CreatePage opens a new page on an Active instance owned by sessionID.
func (m *Manager) CreatePage(ctx context.Context, browserID, sessionID string) (string, error) {
	stop := m.metrics.Timer(metrics.SeriesPageCreationTime)
	defer stop()

	m.mu.Lock()
	inst, ok := m.instances[browserID]
	m.mu.Unlock()
	if !ok {
		return "", errors.NotFound("browser not found: " + browserID)
	}
	if inst.State() != browser.StateActive || inst.Owner() != sessionID {
		return "", errors.UnauthorizedSession("session does not own this browser")
	}
	if inst.PageCount() >= m.cfg.MaxPagesPerBrowser {
		return "", errors.PageLimitReached("browser has reached its page limit")
	}

	handle, err := m.drv.NewPage(ctx, inst.Handle)
	if err != nil {
		return "", errors.Internal("create page failed", err)
	}
	p := inst.AddPage(handle)
	return p.ID, nil
}

// ClosePage closes a page previously opened with CreatePage.
func (m *Manager) ClosePage(ctx context.Context, browserID, sessionID, pageID string) error {
	m.mu.Lock()
	inst, ok := m.instances[browserID]
	m.mu.Unlock()
	if !ok {
		return errors.NotFound("browser not found: " + browserID)
	}
	if inst.Owner() != sessionID {
		return errors.UnauthorizedSession("session does not own this browser")
	}
	p, ok := inst.Page(pageID)
	if !ok {
		return errors.NotFound("page not found: " + pageID)
	}
	if err := m.drv.ClosePage(ctx, p.Handle); err != nil {
		return errors.Internal("close page failed", err)
	}
	inst.RemovePage(pageID)
	return nil
}

// ListInstances returns a read-only snapshot of every tracked instance.
func (m *Manager) ListInstances() []browser.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]browser.Snapshot, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.Snapshot())
	}
	return out
}

// Instances exposes live instance pointers to the health monitor,
// recycler and scaler, which only ever read through Instance's own
// synchronized accessors.
func (m *Manager) Instances() []*browser.Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*browser.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// Driver exposes the configured lifecycle driver to the health monitor.
func (m *Manager) Driver() driver.Driver { return m.drv }

// PageHandle resolves a page id to its driver handle, for wire adapters
// building a commands.Context after CreatePage. Ownership is enforced by
// CreatePage/ClosePage; this lookup is read-only and does not re-check
// sessionID itself.
func (m *Manager) PageHandle(browserID, pageID string) (driver.PageHandle, bool) {
	m.mu.Lock()
	inst, ok := m.instances[browserID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	p, ok := inst.Page(pageID)
	if !ok {
		return nil, false
	}
	return p.Handle, true
}

// Size returns the current pool size (instances not yet disposed).
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// QueueLength returns the current waiter queue length.
func (m *Manager) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiters.len()
}

// MetricsSnapshot records the current pool-size/active/utilization/queue
// gauges and returns the aggregate snapshot the Scaler consumes.
func (m *Manager) MetricsSnapshot() metrics.Snapshot {
	m.mu.Lock()
	size := len(m.instances)
	qlen := m.waiters.len()
	active := 0
	for _, inst := range m.instances {
		if inst.State() == browser.StateActive {
			active++
		}
	}
	m.mu.Unlock()

	m.metrics.Observe(metrics.SeriesPoolSize, float64(size))
	m.metrics.Observe(metrics.SeriesActiveCount, float64(active))
	m.metrics.Observe(metrics.SeriesQueueLength, float64(qlen))
	if size > 0 {
		m.metrics.Observe(metrics.SeriesUtilization, float64(active)/float64(size)*100)
	} else {
		m.metrics.Observe(metrics.SeriesUtilization, 0)
	}
	return m.metrics.Snapshot(15)
}

// RecycleNow marks an instance Recycling and destroys it immediately if
// Idle, or flags it for recycle-on-release if Active (spec §4.4 safety:
// "never recycle an Active instance immediately").
func (m *Manager) RecycleNow(ctx context.Context, browserID string) error {
	m.mu.Lock()
	inst, ok := m.instances[browserID]
	m.mu.Unlock()
	if !ok {
		return errors.NotFound("browser not found: " + browserID)
	}
	if inst.State() == browser.StateActive {
		inst.SetPendingRecycle(true)
		return nil
	}
	inst.SetState(browser.StateRecycling)
	m.destroyInstance(ctx, inst)
	m.observer.OnBrowserRecycled(events.Payload{BrowserID: inst.ID, At: time.Now(), Reason: "recycler"})
	m.fillWaiters()
	return nil
}

// DestroyIdleOlderThan implements maintenance loop step 1 (spec §4.3):
// destroys every Idle instance whose idle time exceeds idleTimeout.
func (m *Manager) DestroyIdleOlderThan(idleTimeout time.Duration) []string {
	m.mu.Lock()
	var targets []*browser.Instance
	for _, inst := range m.instances {
		if inst.State() == browser.StateIdle && inst.Idle() > idleTimeout {
			targets = append(targets, inst)
		}
	}
	m.mu.Unlock()

	ids := make([]string, 0, len(targets))
	for _, inst := range targets {
		inst.SetState(browser.StateRecycling)
		m.destroyInstance(context.Background(), inst)
		ids = append(ids, inst.ID)
	}
	if len(ids) > 0 {
		m.fillWaiters()
	}
	return ids
}

// LaunchOne launches and inserts a new Idle instance, for the scaler's
// scale-up / emergency-scale-up decisions (spec §4.6).
func (m *Manager) LaunchOne(ctx context.Context) (*browser.Instance, error) {
	m.mu.Lock()
	if len(m.instances)+m.reserved >= m.cfg.MaxBrowsers {
		m.mu.Unlock()
		return nil, errors.InvalidConfig("pool is already at maxBrowsers")
	}
	m.reserved++
	m.mu.Unlock()

	inst, err := m.launch(ctx)

	m.mu.Lock()
	m.reserved--
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.instances[inst.ID] = inst
	m.mu.Unlock()

	m.observer.OnBrowserCreated(events.Payload{BrowserID: inst.ID, At: time.Now()})
	m.fillWaiters()
	return inst, nil
}

// RecycleLeastUtilizedIdle implements the scaler's scale-down action:
// "mark least-utilized Idle for recycling" (spec §4.6 rule 3).
func (m *Manager) RecycleLeastUtilizedIdle(ctx context.Context) (string, error) {
	m.mu.Lock()
	inst := m.pickIdleLocked()
	m.mu.Unlock()
	if inst == nil {
		return "", errors.NotFound("no idle instance available to recycle")
	}
	return inst.ID, m.RecycleNow(ctx, inst.ID)
}

// Shutdown rejects new acquisitions, fails every pending waiter with
// ShuttingDown, stops background workers, then closes instances (spec
// §4.1's shutdown(force?) operation).
func (m *Manager) Shutdown(ctx context.Context, force bool) error {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return nil
	}
	m.shuttingDown = true
	expired := m.waiters.drainAll()
	instances := make([]*browser.Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.Unlock()

	for _, w := range expired {
		w.result <- waiterResult{err: errors.ShuttingDown("pool is shutting down")}
	}

	if m.cancelWork != nil {
		m.cancelWork()
	}
	m.wg.Wait()

	for _, inst := range instances {
		if inst.State() == browser.StateActive && !force {
			logger.Warn("shutdown: active instance left running (force=false)", zap.String("browserId", inst.ID))
			continue
		}
		m.destroyInstance(ctx, inst)
	}
	return nil
}

func (m *Manager) launch(ctx context.Context) (*browser.Instance, error) {
	handle, err := m.drv.Launch(ctx, m.cfg.LaunchOptions)
	if err != nil {
		return nil, errors.LaunchFailed("browser launch failed", err)
	}
	pid := m.drv.PID(handle)
	return browser.NewInstance(handle, pid), nil
}

func (m *Manager) destroyInstance(ctx context.Context, inst *browser.Instance) {
	m.mu.Lock()
	delete(m.instances, inst.ID)
	m.mu.Unlock()

	inst.SetState(browser.StateDisposed)
	err := m.drv.Close(ctx, inst.Handle)
	m.observer.OnBrowserRemoved(events.Payload{BrowserID: inst.ID, At: time.Now(), Reason: destroyReason(err)})
	if err != nil {
		logger.Warn("error closing browser instance", zap.String("browserId", inst.ID), zap.Error(err))
	}
}

func destroyReason(err error) string {
	if err != nil {
		return "close-error"
	}
	return "removed"
}

// pickIdleLocked must be called with mu held. Policy: least-recently-used,
// tie-broken by lexicographically smaller id (spec §4.1).
func (m *Manager) pickIdleLocked() *browser.Instance {
	var best *browser.Instance
	var bestTime time.Time
	for _, inst := range m.instances {
		if inst.State() != browser.StateIdle {
			continue
		}
		lu := inst.LastUsedAt()
		if best == nil || lu.Before(bestTime) || (lu.Equal(bestTime) && inst.ID < best.ID) {
			best = inst
			bestTime = lu
		}
	}
	return best
}

// fillWaiters hands freed or newly launched Idle instances to queued
// waiters FIFO (spec §4.1 step 5), launching new instances when budget
// allows and no Idle instance is available. A launch failure leaves the
// head waiter in place to retry on the next free slot.
func (m *Manager) fillWaiters() {
	for {
		m.mu.Lock()
		if m.shuttingDown || m.waiters.len() == 0 {
			m.mu.Unlock()
			return
		}

		if inst := m.pickIdleLocked(); inst != nil {
			w := m.waiters.popFront()
			m.mu.Unlock()
			inst.MarkActive(w.sessionID)
			w.result <- waiterResult{instance: inst}
			continue
		}

		if len(m.instances)+m.reserved >= m.cfg.MaxBrowsers {
			m.mu.Unlock()
			return
		}
		m.reserved++
		m.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.AcquisitionTimeout)
		inst, err := m.launch(ctx)
		cancel()

		m.mu.Lock()
		m.reserved--
		if err != nil {
			m.mu.Unlock()
			return
		}
		m.instances[inst.ID] = inst
		w := m.waiters.popFront()
		m.mu.Unlock()

		m.observer.OnBrowserCreated(events.Payload{BrowserID: inst.ID, At: time.Now()})
		if w == nil {
			return
		}
		inst.MarkActive(w.sessionID)
		w.result <- waiterResult{instance: inst}
	}
}

func (m *Manager) removeWaiter(target *waiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.waiters.items[:0]
	for _, w := range m.waiters.items {
		if w != target {
			kept = append(kept, w)
		}
	}
	m.waiters.items = kept
}
