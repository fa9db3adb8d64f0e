// Package recycle holds the data types the Recycler (spec §4.4) produces.
// The scoring and selection logic lives in services/recycler; this package
// only defines the shape so both that package and the pool manager can
// depend on it without creating an import cycle between them.
package recycle

// Urgency classifies how soon a candidate should be recycled.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Reason names which scoring factor(s) pushed an instance over threshold.
type Reason string

const (
	ReasonAge           Reason = "age"
	ReasonUseCount      Reason = "use_count"
	ReasonMemory        Reason = "memory"
	ReasonCPU           Reason = "cpu"
	ReasonUnresponsive  Reason = "unresponsive"
	ReasonPageLeak      Reason = "page_leak"
	ReasonErrorRate     Reason = "error_rate"
)

// Candidate is one instance the Recycler has scored above the recycling
// threshold (spec §3 RecyclingCandidate).
type Candidate struct {
	BrowserID string
	Score     float64
	Reasons   []Reason
	Urgency   Urgency
}
