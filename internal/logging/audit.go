package logging

import (
	"sort"

	"github.com/go-logr/logr"
)

// Audit event types emitted by the hook handlers.
const (
	EventRolloutStarted   = "rollout_started"
	EventRolloutCancelled = "rollout_cancelled"
	EventColorSwapped     = "color_swapped"
	EventOrdinalAdded     = "ordinal_added"
	EventOrdinalRemoved   = "ordinal_removed"
	EventFinalized        = "finalized"
)

// LogAuditEvent logs a structured audit event for a state machine transition.
// Audit entries carry "audit"="true" so log pipelines can route them apart from
// regular logs. Fields are emitted in key order.
func LogAuditEvent(logger logr.Logger, eventType string, fields map[string]string) {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	kvs := make([]any, 0, 4+2*len(keys))
	kvs = append(kvs, "audit", "true", "event_type", eventType)
	for _, key := range keys {
		kvs = append(kvs, key, fields[key])
	}
	logger.WithValues(kvs...).Info("Transition audit event")
}
