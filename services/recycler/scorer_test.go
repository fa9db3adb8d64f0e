package recycler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"browsergate/models/browser"
	"browsergate/models/recycle"
)

func TestCandidatesScoresUnresponsiveHigh(t *testing.T) {
	inst := browser.NewInstance(nil, nil)
	inst.SetHealth(browser.HealthRecord{Healthy: false, Responsive: false, LastCheckAt: time.Now()})

	cfg := DefaultConfig()
	cfg.RecyclingThreshold = 10
	s := NewScorer(cfg)

	candidates := s.Candidates([]*browser.Instance{inst}, nil)
	if assert.Len(t, candidates, 1) {
		assert.Contains(t, candidates[0].Reasons, recycle.ReasonUnresponsive)
		assert.GreaterOrEqual(t, candidates[0].Score, cfg.RecyclingThreshold)
	}
}

func TestCandidatesSkipBelowThreshold(t *testing.T) {
	inst := browser.NewInstance(nil, nil)
	s := NewScorer(DefaultConfig())

	candidates := s.Candidates([]*browser.Instance{inst}, nil)
	assert.Empty(t, candidates)
}

func TestUrgencyMapping(t *testing.T) {
	assert.Equal(t, recycle.UrgencyCritical, urgencyFor(95))
	assert.Equal(t, recycle.UrgencyHigh, urgencyFor(85))
	assert.Equal(t, recycle.UrgencyMedium, urgencyFor(75))
	assert.Equal(t, recycle.UrgencyLow, urgencyFor(10))
}
