package model

import (
	"time"

	"github.com/google/uuid"
)

type SourceMetadata struct {
	ClusterID string `json:"clusterId"`
	Version   string `json:"version"`
}

// Revision holds template revisions before and after a color swap.
type Revision struct {
	Current  string `json:"current"`
	Previous string `json:"previous,omitempty"`
}

type TransitionEventPayload struct {
	EventID     string            `json:"eventId"`
	OccurredAt  time.Time         `json:"occurredAt"`
	Source      SourceMetadata    `json:"source"`
	Controller  string            `json:"controller"`
	Parent      ParentRef         `json:"parent"`
	Labels      map[string]string `json:"labels"`
	Kind        TransitionKind    `json:"kind"`
	ActiveColor string            `json:"activeColor,omitempty"`
	Revision    *Revision         `json:"revision,omitempty"`
	Ordinal     *int64            `json:"ordinal,omitempty"`
	Replicas    *int64            `json:"replicas,omitempty"`
}

func NewTransitionEventPayload(t Transition, clusterID, version string) TransitionEventPayload {
	labels := make(map[string]string, len(t.Labels)+1)
	for key, value := range t.Labels {
		labels[key] = value
	}
	labels["cluster_name"] = clusterID

	return TransitionEventPayload{
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Source: SourceMetadata{
			ClusterID: clusterID,
			Version:   version,
		},
		Controller:  t.Controller,
		Parent:      t.Parent,
		Labels:      labels,
		Kind:        t.Kind,
		ActiveColor: t.ActiveColor,
		Revision:    t.Revision,
		Ordinal:     t.Ordinal,
		Replicas:    t.Replicas,
	}
}

// OrderingKey groups events of the same parent: cluster/namespace/name.
func (p TransitionEventPayload) OrderingKey() string {
	return p.Source.ClusterID + "/" + p.Parent.Namespace + "/" + p.Parent.Name
}
