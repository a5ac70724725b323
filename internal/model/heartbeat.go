package model

import (
	"time"

	"github.com/google/uuid"
)

// HookRoute describes one served hook path.
type HookRoute struct {
	Path       string `json:"path"`
	Controller string `json:"controller"`
}

// HeartbeatPayload tells the control plane the hook server is alive and which
// hooks it serves.
type HeartbeatPayload struct {
	EventID     string         `json:"eventId"`
	OccurredAt  time.Time      `json:"occurredAt"`
	Source      SourceMetadata `json:"source"`
	MessageType string         `json:"messageType"`
	Routes      []HookRoute    `json:"routes"`
}

func NewHeartbeatPayload(clusterID, version string, routes []HookRoute) HeartbeatPayload {
	return HeartbeatPayload{
		EventID:    uuid.New().String(),
		OccurredAt: time.Now().UTC(),
		Source: SourceMetadata{
			ClusterID: clusterID,
			Version:   version,
		},
		MessageType: "HEARTBEAT",
		Routes:      routes,
	}
}
