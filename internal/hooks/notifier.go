package hooks

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/apptrail-sh/synchooks/internal/filter"
	"github.com/apptrail-sh/synchooks/internal/metrics"
	"github.com/apptrail-sh/synchooks/internal/model"
)

// Notifier receives notable transitions from the hook handlers.
// Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, t model.Transition)
}

// NopNotifier discards every transition.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.Transition) {}

// ChannelNotifier stamps transitions into event payloads and hands them to a TransitionQueue.
// When the channel is full the event is dropped; the next decision reports fresh state anyway.
type ChannelNotifier struct {
	events    chan<- model.TransitionEventPayload
	filter    *filter.EventFilter
	clusterID string
	version   string
}

// NewChannelNotifier creates a notifier writing to events. A nil filter publishes everything.
func NewChannelNotifier(events chan<- model.TransitionEventPayload, eventFilter *filter.EventFilter, clusterID, version string) *ChannelNotifier {
	return &ChannelNotifier{
		events:    events,
		filter:    eventFilter,
		clusterID: clusterID,
		version:   version,
	}
}

func (n *ChannelNotifier) Notify(ctx context.Context, t model.Transition) {
	logger := log.FromContext(ctx)

	if !n.filter.ShouldPublish(string(t.Kind), t.Parent.Namespace, t.Labels) {
		logger.V(1).Info("Transition filtered out", "kind", t.Kind)
		return
	}

	event := model.NewTransitionEventPayload(t, n.clusterID, n.version)
	select {
	case n.events <- event:
	default:
		metrics.RecordDroppedEvent()
		logger.Info("Notification buffer full, dropping transition event",
			"eventID", event.EventID,
			"kind", event.Kind,
		)
	}
}
