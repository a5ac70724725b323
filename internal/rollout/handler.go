package rollout

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/apptrail-sh/synchooks/api/v1alpha1"
	"github.com/apptrail-sh/synchooks/internal/builder"
	"github.com/apptrail-sh/synchooks/internal/hooks"
	"github.com/apptrail-sh/synchooks/internal/logging"
	"github.com/apptrail-sh/synchooks/internal/metrics"
	"github.com/apptrail-sh/synchooks/internal/model"
	"github.com/apptrail-sh/synchooks/internal/syncapi"
)

// ControllerName labels metrics and events produced by this handler.
const ControllerName = "bluegreen"

// Handler serves the blue/green sync hook.
type Handler struct {
	notifier hooks.Notifier
}

// NewHandler returns a handler reporting notable transitions to notifier. A nil notifier discards them.
func NewHandler(notifier hooks.Notifier) *Handler {
	if notifier == nil {
		notifier = hooks.NopNotifier{}
	}
	return &Handler{notifier: notifier}
}

var _ syncapi.Handler = &Handler{}

func (h *Handler) Sync(ctx context.Context, req *syncapi.Request) (*syncapi.Response, error) {
	bgd, err := v1alpha1.BlueGreenDeploymentFromUnstructured(req.Parent)
	if err != nil {
		return nil, err
	}

	replicaSets := req.Children.Get(builder.ReplicaSetGVK)
	observed := Observed{
		Service: req.Children.Get(builder.ServiceGVK)[bgd.ServiceName()],
		Blue:    replicaSets[builder.GroupName(bgd.Name, ColorBlue)],
		Green:   replicaSets[builder.GroupName(bgd.Name, ColorGreen)],
	}

	decision, err := Decide(bgd, observed)
	if err != nil {
		return nil, err
	}
	children, err := decision.Children(bgd)
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ControllerName, string(decision.Transition))
	logger := log.FromContext(ctx)
	logger.V(1).Info("Rollout decision",
		"transition", decision.Transition,
		"activeColor", decision.ActiveColor,
		"activeReplicas", decision.ActiveReplicas,
		"inactiveReplicas", decision.InactiveReplicas,
		"activeRevision", decision.ActiveRevision,
	)
	h.report(ctx, bgd, decision)

	return &syncapi.Response{
		Status:   decision.Status.ToMap(),
		Children: children,
	}, nil
}

// report emits an audit log entry and a notification for transitions worth recording.
// Re-invocation on unchanged state repeats the same report.
func (h *Handler) report(ctx context.Context, bgd *v1alpha1.BlueGreenDeployment, d *Decision) {
	var kind model.TransitionKind
	var auditEvent string
	// Current is the revision being rolled to, Previous the one it replaces.
	revision := &model.Revision{Current: d.ActiveRevision, Previous: d.InactiveRevision}
	switch d.Transition {
	case TransitionRolloutStarted:
		kind, auditEvent = model.TransitionKindRolloutStarted, logging.EventRolloutStarted
		revision = &model.Revision{Current: d.InactiveRevision, Previous: d.ActiveRevision}
	case TransitionRolloutCancelled:
		kind, auditEvent = model.TransitionKindRolloutCancelled, logging.EventRolloutCancelled
	case TransitionSwapped:
		kind, auditEvent = model.TransitionKindColorSwapped, logging.EventColorSwapped
	default:
		return
	}

	logging.LogAuditEvent(log.FromContext(ctx), auditEvent, map[string]string{
		"controller":       ControllerName,
		"parent":           bgd.Name,
		"namespace":        bgd.Namespace,
		"activeColor":      d.ActiveColor,
		"revision":         revision.Current,
		"previousRevision": revision.Previous,
	})

	h.notifier.Notify(ctx, model.Transition{
		Controller: ControllerName,
		Parent: model.ParentRef{
			Kind:      v1alpha1.BlueGreenDeploymentKind.Kind,
			Name:      bgd.Name,
			Namespace: bgd.Namespace,
			UID:       string(bgd.UID),
		},
		Labels:      bgd.Labels,
		Kind:        kind,
		ActiveColor: d.ActiveColor,
		Revision:    revision,
	})
}
