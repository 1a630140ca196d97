package domain

// Confidence expresses how a routing decision was reached.
type Confidence string

const (
	// ConfidenceDirect is an exact name match.
	ConfidenceDirect Confidence = "direct"
	// ConfidencePartial is a containment match or a fallback rule.
	ConfidencePartial Confidence = "partial"
	// ConfidenceNone means no worker could be chosen.
	ConfidenceNone Confidence = "none"
)

// RoutingSource is the stage that produced the decision.
type RoutingSource string

const (
	SourceOracle   RoutingSource = "oracle"
	SourceFallback RoutingSource = "fallback"
)

// RoutingDecision is the classifier's answer for one sub-request.
type RoutingDecision struct {
	Chosen     *WorkerDescriptor `json:"chosen,omitempty"`
	Confidence Confidence        `json:"confidence"`
	Source     RoutingSource     `json:"source"`
}

// Uncertain is the decision returned when the oracle gives nothing usable.
func Uncertain(source RoutingSource) RoutingDecision {
	return RoutingDecision{Confidence: ConfidenceNone, Source: source}
}

// IsNone reports whether no worker was chosen.
func (d RoutingDecision) IsNone() bool {
	return d.Chosen == nil || d.Confidence == ConfidenceNone
}

// Worker returns the chosen worker's name, or "" when none was chosen.
func (d RoutingDecision) Worker() WorkerName {
	if d.Chosen == nil {
		return ""
	}
	return d.Chosen.Name
}
