// Package admission gates acquisition requests by tenant before they ever
// reach the pool: a request-rate limit plus a concurrent-session cap per
// tenant, so one noisy tenant cannot starve another's waiter queue slot.
// Adapted from the teacher's services/tenant.Manager, generalized from a
// fixed three-tier table to a pluggable Policy per tenant.
package admission

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"browsergate/errors"
)

// Policy bounds what a single tenant may do concurrently.
type Policy struct {
	RequestsPerSecond rate.Limit
	Burst             int
	MaxConcurrent     int
}

// DefaultPolicies mirrors the teacher's free/pro/enterprise tier table.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"free":       {RequestsPerSecond: 1, Burst: 2, MaxConcurrent: 3},
		"pro":        {RequestsPerSecond: 10, Burst: 20, MaxConcurrent: 25},
		"enterprise": {RequestsPerSecond: 100, Burst: 200, MaxConcurrent: 100},
	}
}

type tenant struct {
	policy  Policy
	limiter *rate.Limiter

	mu       sync.Mutex
	inFlight int
}

// Gate admits or rejects acquisition attempts per tenant ahead of the pool.
type Gate struct {
	mu       sync.RWMutex
	tenants  map[string]*tenant
	policies map[string]Policy
	fallback Policy
}

// New builds a Gate from a tier->Policy table; ties tenants to tiers via
// Register. Tenants not yet registered use the fallback policy.
func New(policies map[string]Policy) *Gate {
	return &Gate{
		tenants:  make(map[string]*tenant),
		policies: policies,
		fallback: policies["free"],
	}
}

// Register binds a tenant id to a policy tier, creating its limiter.
func (g *Gate) Register(tenantID, tier string) {
	policy, ok := g.policies[tier]
	if !ok {
		policy = g.fallback
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tenants[tenantID] = &tenant{
		policy:  policy,
		limiter: rate.NewLimiter(policy.RequestsPerSecond, policy.Burst),
	}
}

func (g *Gate) get(tenantID string) *tenant {
	g.mu.RLock()
	t, ok := g.tenants[tenantID]
	g.mu.RUnlock()
	if ok {
		return t
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if t, ok = g.tenants[tenantID]; ok {
		return t
	}
	t = &tenant{policy: g.fallback, limiter: rate.NewLimiter(g.fallback.RequestsPerSecond, g.fallback.Burst)}
	g.tenants[tenantID] = t
	return t
}

// Admit checks the tenant's rate limit and concurrency cap. On success it
// returns a release func the caller must invoke when the admitted unit of
// work (e.g. the acquired browser's eventual release) completes.
func (g *Gate) Admit(ctx context.Context, tenantID string) (func(), error) {
	t := g.get(tenantID)

	if !t.limiter.Allow() {
		return nil, errors.QueueFull("tenant " + tenantID + " exceeded request rate")
	}

	t.mu.Lock()
	if t.inFlight >= t.policy.MaxConcurrent {
		t.mu.Unlock()
		return nil, errors.QueueFull("tenant " + tenantID + " exceeded concurrent session limit")
	}
	t.inFlight++
	t.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			t.mu.Lock()
			if t.inFlight > 0 {
				t.inFlight--
			}
			t.mu.Unlock()
		})
	}
	return release, nil
}

// Wait blocks until the tenant's rate limiter would allow a request, or
// the context is done, without touching the concurrency cap. Useful for
// adapters that want to smooth bursts rather than reject them outright.
func (g *Gate) Wait(ctx context.Context, tenantID string) error {
	return g.get(tenantID).limiter.Wait(ctx)
}

// InFlight reports a tenant's current concurrent-session count.
func (g *Gate) InFlight(tenantID string) int {
	t := g.get(tenantID)
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight
}
