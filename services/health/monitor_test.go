package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsergate/models/browser"
	"browsergate/services/driver"
	"browsergate/services/metrics"
)

type fakePool struct {
	instances []*browser.Instance
	drv       driver.Driver
}

func (p *fakePool) Instances() []*browser.Instance { return p.instances }
func (p *fakePool) Driver() driver.Driver          { return p.drv }

func TestCheckMarksHealthyInstance(t *testing.T) {
	fake := driver.NewFake()
	handle, err := fake.Launch(context.Background(), driver.LaunchOptions{})
	require.NoError(t, err)
	inst := browser.NewInstance(handle, nil)

	pool := &fakePool{instances: []*browser.Instance{inst}, drv: fake}
	mon := New(pool, DefaultConfig(), metrics.NewCollector(), nil)

	mon.check(context.Background(), inst)

	health := inst.Health()
	assert.True(t, health.Healthy)
	assert.True(t, health.Responsive)
}

func TestCheckEscalatesOnHardDisconnect(t *testing.T) {
	fake := driver.NewFake()
	handle, err := fake.Launch(context.Background(), driver.LaunchOptions{})
	require.NoError(t, err)
	fake.SetDisconnected(handle, true)
	inst := browser.NewInstance(handle, nil)

	pool := &fakePool{instances: []*browser.Instance{inst}, drv: fake}

	var escalated atomic.Bool
	mon := New(pool, DefaultConfig(), metrics.NewCollector(), func(ctx context.Context, browserID string) error {
		escalated.Store(true)
		assert.Equal(t, inst.ID, browserID)
		return nil
	})

	mon.check(context.Background(), inst)

	assert.True(t, escalated.Load())
	assert.False(t, inst.Health().Healthy)
}

func TestCheckEscalatesAfterThreeConsecutiveUnhealthy(t *testing.T) {
	fake := driver.NewFake()
	handle, err := fake.Launch(context.Background(), driver.LaunchOptions{})
	require.NoError(t, err)
	inst := browser.NewInstance(handle, nil)
	pool := &fakePool{instances: []*browser.Instance{inst}, drv: fake}

	var escalations int32
	mon := New(pool, DefaultConfig(), metrics.NewCollector(), func(ctx context.Context, browserID string) error {
		atomic.AddInt32(&escalations, 1)
		return nil
	})

	inst.SetHealth(browser.HealthRecord{Healthy: false, LastCheckAt: time.Now()})
	inst.SetHealth(browser.HealthRecord{Healthy: false, LastCheckAt: time.Now()})
	assert.Equal(t, 2, inst.Health().ConsecutiveUnhealthy())

	fake.SetDisconnected(handle, true)
	mon.check(context.Background(), inst)

	assert.Equal(t, int32(1), atomic.LoadInt32(&escalations))
}
