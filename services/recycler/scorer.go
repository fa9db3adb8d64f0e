package recycler

import (
	"sort"

	"browsergate/models/browser"
	"browsergate/models/recycle"
)

// ErrorRateFunc looks up an instance's rolling command error rate in
// [0,1]; callers that don't track per-instance error rates may pass nil.
type ErrorRateFunc func(browserID string) float64

// Scorer computes composite recycling scores (spec §4.4 "Scoring").
type Scorer struct {
	cfg Config
}

// NewScorer builds a Scorer with the given configuration.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Candidates scores every instance and returns those at or above
// RecyclingThreshold, sorted highest score first (spec §4.4 "Candidate
// production: returns the top-k candidates").
func (s *Scorer) Candidates(instances []*browser.Instance, errRate ErrorRateFunc) []recycle.Candidate {
	out := make([]recycle.Candidate, 0, len(instances))
	for _, inst := range instances {
		if inst.State() == browser.StateDisposed {
			continue
		}
		score, reasons := s.score(inst, errRate)
		if score < s.cfg.RecyclingThreshold {
			continue
		}
		out = append(out, recycle.Candidate{
			BrowserID: inst.ID,
			Score:     score,
			Reasons:   reasons,
			Urgency:   urgencyFor(score),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// score computes the weighted composite in [0,100] plus the set of
// sub-factors that individually crossed half their own cap (the
// "reasons" the candidate was flagged).
func (s *Scorer) score(inst *browser.Instance, errRate ErrorRateFunc) (float64, []recycle.Reason) {
	w := s.cfg.Weights
	var total, weightSum float64
	var reasons []recycle.Reason

	add := func(norm float64, weight float64, reason recycle.Reason) {
		if weight <= 0 {
			return
		}
		if norm > 1 {
			norm = 1
		}
		if norm < 0 {
			norm = 0
		}
		total += norm * weight
		weightSum += weight
		if norm >= 0.5 {
			reasons = append(reasons, reason)
		}
	}

	if s.cfg.MaxAge > 0 {
		add(float64(inst.Age())/float64(s.cfg.MaxAge), w.Age, recycle.ReasonAge)
	}
	if s.cfg.RecycleAfterUses > 0 {
		add(float64(inst.UseCount())/float64(s.cfg.RecycleAfterUses), w.UseCount, recycle.ReasonUseCount)
	}

	health := inst.Health()
	if s.cfg.MaxMemoryMB > 0 && health.MemoryMB != nil {
		add(*health.MemoryMB/s.cfg.MaxMemoryMB, w.Memory, recycle.ReasonMemory)
	}
	if s.cfg.MaxCPUPercent > 0 && health.CPUPercent != nil {
		add(*health.CPUPercent/s.cfg.MaxCPUPercent, w.CPU, recycle.ReasonCPU)
	}
	if !health.LastCheckAt.IsZero() && !health.Responsive {
		add(1, w.Unresponsive, recycle.ReasonUnresponsive)
	}
	if s.cfg.MaxPagesPerBrowser > 0 {
		add(float64(inst.PageCount())/float64(s.cfg.MaxPagesPerBrowser), w.PageLeak, recycle.ReasonPageLeak)
	}
	if errRate != nil {
		add(errRate(inst.ID), w.ErrorRate, recycle.ReasonErrorRate)
	}

	if weightSum == 0 {
		return 0, nil
	}
	return (total / weightSum) * 100, reasons
}

func urgencyFor(score float64) recycle.Urgency {
	switch {
	case score >= 90:
		return recycle.UrgencyCritical
	case score >= 80:
		return recycle.UrgencyHigh
	case score >= 70:
		return recycle.UrgencyMedium
	default:
		return recycle.UrgencyLow
	}
}
