// Package scaling holds the data types the Scaler (spec §4.6) produces.
// As with models/recycle, the decision logic lives in services/scaler;
// this package exists so it and the pool manager can share the shape
// without importing each other.
package scaling

// Kind is the action a ScalingDecision recommends.
type Kind string

const (
	KindNone      Kind = "none"
	KindScaleUp   Kind = "scale_up"
	KindScaleDown Kind = "scale_down"
	KindEmergency Kind = "emergency_scale_up"
)

// Decision is one scaler evaluation (spec §3 ScalingDecision).
type Decision struct {
	Kind         Kind
	PreviousSize int
	TargetSize   int
	Confidence   float64
	Rationale    string
}
