package recycler

import (
	"context"
	"sort"
	"sync"
	"time"

	"browsergate/models/browser"
	"browsergate/models/recycle"
)

// Result is one executed recycle attempt (spec §4.4 "record an event
// {browserId, urgency, reasons, success, durationMs, error?}").
type Result struct {
	BrowserID  string
	Urgency    recycle.Urgency
	Reasons    []recycle.Reason
	Success    bool
	DurationMs int64
	Error      string
}

// Executor runs bounded recycle batches with a cooldown between runs
// (spec §4.4 "Execution" and "Safety").
type Executor struct {
	cfg Config

	mu      sync.Mutex
	lastRun time.Time
}

// NewExecutor builds an Executor with the given configuration.
func NewExecutor(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// urgencyRank orders urgency levels for the batch tie-break.
func urgencyRank(u recycle.Urgency) int {
	switch u {
	case recycle.UrgencyCritical:
		return 3
	case recycle.UrgencyHigh:
		return 2
	case recycle.UrgencyMedium:
		return 1
	default:
		return 0
	}
}

// Execute takes at most cfg.MaxBatchSize candidates, highest urgency
// first (ties: higher score, then older lastUsedAt), and invokes
// recycleCallback for each. recycleCallback is the pool manager's
// RecycleNow — it is responsible for the Active-vs-Idle safety rule.
func (e *Executor) Execute(ctx context.Context, candidates []recycle.Candidate, instances []*browser.Instance, recycleCallback func(ctx context.Context, browserID string) error) []Result {
	e.mu.Lock()
	if !e.lastRun.IsZero() && time.Since(e.lastRun) < e.cfg.Cooldown {
		e.mu.Unlock()
		return nil
	}
	e.lastRun = time.Now()
	e.mu.Unlock()

	lastUsed := make(map[string]time.Time, len(instances))
	for _, inst := range instances {
		lastUsed[inst.ID] = inst.LastUsedAt()
	}

	ordered := append([]recycle.Candidate(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if urgencyRank(a.Urgency) != urgencyRank(b.Urgency) {
			return urgencyRank(a.Urgency) > urgencyRank(b.Urgency)
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return lastUsed[a.BrowserID].Before(lastUsed[b.BrowserID])
	})

	batch := ordered
	if len(batch) > e.cfg.MaxBatchSize {
		batch = batch[:e.cfg.MaxBatchSize]
	}

	results := make([]Result, 0, len(batch))
	for _, c := range batch {
		start := time.Now()
		err := recycleCallback(ctx, c.BrowserID)
		res := Result{
			BrowserID:  c.BrowserID,
			Urgency:    c.Urgency,
			Reasons:    c.Reasons,
			Success:    err == nil,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}
