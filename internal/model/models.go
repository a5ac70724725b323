package model

// TransitionKind names a notable step of a controller's state machine.
type TransitionKind string

const (
	TransitionKindRolloutStarted   TransitionKind = "ROLLOUT_STARTED"
	TransitionKindRolloutCancelled TransitionKind = "ROLLOUT_CANCELLED"
	TransitionKindColorSwapped     TransitionKind = "COLOR_SWAPPED"
	TransitionKindOrdinalAdded     TransitionKind = "ORDINAL_ADDED"
	TransitionKindOrdinalRemoved   TransitionKind = "ORDINAL_REMOVED"
	TransitionKindFinalized        TransitionKind = "FINALIZED"
)

// ParentRef identifies the custom resource a decision was made for.
type ParentRef struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
	UID       string `json:"uid,omitempty"`
}

// Transition is what a hook handler reports after a notable decision.
type Transition struct {
	Controller string
	Parent     ParentRef
	Labels     map[string]string // Kubernetes labels from the parent
	Kind       TransitionKind

	// Set for blue/green transitions.
	ActiveColor string
	Revision    *Revision

	// Set for ordinal transitions.
	Ordinal  *int64
	Replicas *int64
}
