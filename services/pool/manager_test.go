package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsergate/errors"
	"browsergate/services/circuitbreaker"
	"browsergate/services/driver"
	"browsergate/services/events"
	"browsergate/services/metrics"
)

func newTestManager(t *testing.T, mutate func(*Config)) (*Manager, *driver.Fake) {
	t.Helper()
	fake := driver.NewFake()
	cfg := DefaultConfig()
	cfg.MaxBrowsers = 2
	cfg.MaxQueueLength = 2
	cfg.AcquisitionTimeout = 200 * time.Millisecond
	cfg.MaxPagesPerBrowser = 2
	if mutate != nil {
		mutate(&cfg)
	}
	breaker := circuitbreaker.New("test", circuitbreaker.DefaultConfig())
	mgr := New(cfg, fake, breaker, events.NopObserver{}, metrics.NewCollector())
	require.NoError(t, mgr.Initialize(context.Background()))
	return mgr, fake
}

func TestAcquireLaunchesUpToMaxBrowsers(t *testing.T) {
	mgr, fake := newTestManager(t, nil)

	i1, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)
	i2, err := mgr.Acquire(context.Background(), "s2", time.Time{})
	require.NoError(t, err)

	assert.NotEqual(t, i1.ID, i2.ID)
	assert.Equal(t, 2, fake.LaunchCount)
	assert.Equal(t, 2, mgr.Size())
}

func TestAcquireReusesIdleInstance(t *testing.T) {
	mgr, fake := newTestManager(t, nil)

	inst, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)
	require.NoError(t, mgr.Release(inst.ID, "s1"))

	again, err := mgr.Acquire(context.Background(), "s2", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, inst.ID, again.ID)
	assert.Equal(t, 1, fake.LaunchCount)
}

func TestAcquireTimesOutWhenPoolExhausted(t *testing.T) {
	mgr, _ := newTestManager(t, func(c *Config) { c.MaxBrowsers = 1 })

	_, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	start := time.Now()
	_, err = mgr.Acquire(context.Background(), "s2", time.Now().Add(50*time.Millisecond))
	elapsed := time.Since(start)

	var gwErr *errors.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, errors.CodeTimeout, gwErr.Code)
	assert.Less(t, elapsed, time.Second)
}

func TestAcquireQueueFullRejectsExtraWaiters(t *testing.T) {
	mgr, _ := newTestManager(t, func(c *Config) {
		c.MaxBrowsers = 1
		c.MaxQueueLength = 0
	})

	_, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	_, err = mgr.Acquire(context.Background(), "s2", time.Now().Add(time.Second))
	var gwErr *errors.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, errors.CodeQueueFull, gwErr.Code)
}

func TestReleaseWrongSessionFails(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	inst, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	err = mgr.Release(inst.ID, "someone-else")
	var gwErr *errors.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, errors.CodeUnauthorizedSession, gwErr.Code)
}

func TestReleaseHandsInstanceToWaitingQueue(t *testing.T) {
	mgr, _ := newTestManager(t, func(c *Config) { c.MaxBrowsers = 1 })

	inst, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	type outcome struct {
		instanceID string
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		waiter, err := mgr.Acquire(context.Background(), "s2", time.Now().Add(time.Second))
		if err != nil {
			done <- outcome{err: err}
			return
		}
		done <- outcome{instanceID: waiter.ID}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, mgr.Release(inst.ID, "s1"))

	select {
	case o := <-done:
		require.NoError(t, o.err)
		assert.Equal(t, inst.ID, o.instanceID)
	case <-time.After(time.Second):
		t.Fatal("waiter was never served")
	}
}

func TestRecycleOnReleaseAfterUseLimit(t *testing.T) {
	mgr, fake := newTestManager(t, func(c *Config) { c.RecycleAfterUses = 1 })

	inst, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)
	require.NoError(t, mgr.Release(inst.ID, "s1"))

	assert.Equal(t, 1, fake.CloseCount)
	assert.Equal(t, 0, mgr.Size())
}

func TestCreateAndClosePage(t *testing.T) {
	mgr, _ := newTestManager(t, nil)

	inst, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	pageID, err := mgr.CreatePage(context.Background(), inst.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, inst.PageCount())

	require.NoError(t, mgr.ClosePage(context.Background(), inst.ID, "s1", pageID))
	assert.Equal(t, 0, inst.PageCount())
}

func TestCreatePageLimitReached(t *testing.T) {
	mgr, _ := newTestManager(t, func(c *Config) { c.MaxPagesPerBrowser = 1 })

	inst, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	_, err = mgr.CreatePage(context.Background(), inst.ID, "s1")
	require.NoError(t, err)

	_, err = mgr.CreatePage(context.Background(), inst.ID, "s1")
	var gwErr *errors.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, errors.CodePageLimitReached, gwErr.Code)
}

func TestShutdownRejectsNewAcquisitions(t *testing.T) {
	mgr, _ := newTestManager(t, nil)
	require.NoError(t, mgr.Shutdown(context.Background(), true))

	_, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	var gwErr *errors.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, errors.CodeShuttingDown, gwErr.Code)
}

func TestShutdownFailsPendingWaiters(t *testing.T) {
	mgr, _ := newTestManager(t, func(c *Config) { c.MaxBrowsers = 1 })

	_, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, err := mgr.Acquire(context.Background(), "s2", time.Now().Add(5*time.Second))
		waitErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, mgr.Shutdown(context.Background(), true))

	select {
	case err := <-waitErr:
		var gwErr *errors.Error
		require.ErrorAs(t, err, &gwErr)
		assert.Equal(t, errors.CodeShuttingDown, gwErr.Code)
	case <-time.After(time.Second):
		t.Fatal("waiter was never rejected")
	}
}

func TestLaunchFailureSurfacesToCaller(t *testing.T) {
	mgr, fake := newTestManager(t, nil)
	fake.FailNext = 1

	_, err := mgr.Acquire(context.Background(), "s1", time.Time{})
	var gwErr *errors.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, errors.CodeLaunchFailed, gwErr.Code)
}
