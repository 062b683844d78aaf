package domain

// RouteKind is the branch the router selected for a message.
type RouteKind string

const (
	RouteGreeting     RouteKind = "greeting"
	RouteStaticInfo   RouteKind = "static_info"
	RouteSummarize    RouteKind = "summarize"
	RouteUsageHint    RouteKind = "usage_hint"
	RouteConversation RouteKind = "conversation"
)

// RouteDecision is the router's output. Text is the inference input for
// RouteSummarize and RouteConversation and empty otherwise.
type RouteDecision struct {
	Kind RouteKind
	Text string
}

// NeedsInference reports whether the decision is answered by the backend.
func (d RouteDecision) NeedsInference() bool {
	return d.Kind == RouteSummarize || d.Kind == RouteConversation
}
