package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/time/rate"
)

func TestAdmitRejectsOverConcurrencyLimit(t *testing.T) {
	g := New(map[string]Policy{
		"free": {RequestsPerSecond: rate.Inf, Burst: 1000, MaxConcurrent: 1},
	})
	g.Register("t1", "free")

	release, err := g.Admit(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, g.InFlight("t1"))

	_, err = g.Admit(context.Background(), "t1")
	assert.Error(t, err)

	release()
	assert.Equal(t, 0, g.InFlight("t1"))

	_, err = g.Admit(context.Background(), "t1")
	assert.NoError(t, err)
}

func TestAdmitRejectsOverRateLimit(t *testing.T) {
	g := New(map[string]Policy{
		"free": {RequestsPerSecond: 0, Burst: 1, MaxConcurrent: 100},
	})
	g.Register("t1", "free")

	_, err := g.Admit(context.Background(), "t1")
	require.NoError(t, err)

	_, err = g.Admit(context.Background(), "t1")
	assert.Error(t, err)
}

func TestUnregisteredTenantUsesFallbackPolicy(t *testing.T) {
	g := New(DefaultPolicies())

	release, err := g.Admit(context.Background(), "unknown-tenant")
	require.NoError(t, err)
	release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	g := New(map[string]Policy{
		"free": {RequestsPerSecond: rate.Inf, Burst: 10, MaxConcurrent: 1},
	})
	g.Register("t1", "free")

	release, err := g.Admit(context.Background(), "t1")
	require.NoError(t, err)
	release()
	release()
	assert.Equal(t, 0, g.InFlight("t1"))
}
