package scaler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"browsergate/models/scaling"
	"browsergate/services/metrics"
)

func TestDecideEmergencyScaleUp(t *testing.T) {
	s := New(DefaultConfig())
	snap := metrics.Snapshot{Utilization: 95, QueueLength: 20}

	d := s.Decide(snap, 2)
	require.Equal(t, scaling.KindEmergency, d.Kind)
	assert.Greater(t, d.TargetSize, d.PreviousSize)
}

func TestDecideScaleUpOnUtilization(t *testing.T) {
	s := New(DefaultConfig())
	snap := metrics.Snapshot{Utilization: 80, QueueLength: 0}

	d := s.Decide(snap, 2)
	assert.Equal(t, scaling.KindScaleUp, d.Kind)
}

func TestDecideScaleDownWhenIdle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleDownCooldown = 0
	s := New(cfg)
	snap := metrics.Snapshot{Utilization: 5, QueueLength: 0}

	d := s.Decide(snap, 3)
	assert.Equal(t, scaling.KindScaleDown, d.Kind)
	assert.Equal(t, 2, d.TargetSize)
}

func TestDecideNoneWhenNominal(t *testing.T) {
	s := New(DefaultConfig())
	snap := metrics.Snapshot{Utilization: 50, QueueLength: 0}

	d := s.Decide(snap, 3)
	assert.Equal(t, scaling.KindNone, d.Kind)
}

func TestScaleUpCooldownBlocksRepeat(t *testing.T) {
	s := New(DefaultConfig())
	snap := metrics.Snapshot{Utilization: 80, QueueLength: 0}

	first := s.Decide(snap, 2)
	require.Equal(t, scaling.KindScaleUp, first.Kind)

	second := s.Decide(snap, 2)
	assert.Equal(t, scaling.KindNone, second.Kind)
}

func TestDoesNotScaleDownBelowMinBrowsers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBrowsers = 2
	cfg.ScaleDownCooldown = 0
	s := New(cfg)
	snap := metrics.Snapshot{Utilization: 0, QueueLength: 0}

	d := s.Decide(snap, 2)
	assert.Equal(t, scaling.KindNone, d.Kind)
}
