package ordinal

import (
	"context"
	"strconv"

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
const ControllerName = "ordinalset"

// Handler serves the ordinal set sync and finalize hooks. The request's finalizing flag
// selects the teardown behavior, so one handler can back both routes.
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
	set, err := v1alpha1.OrdinalSetFromUnstructured(req.Parent)
	if err != nil {
		return nil, err
	}

	plan := NewPlan(set, req.Children.Get(builder.PodGVK), req.Children.Get(builder.ClaimGVK), req.Finalizing)
	children, err := plan.Children(set)
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(ControllerName, string(plan.Step))
	log.FromContext(ctx).V(1).Info("Ordinal plan",
		"step", plan.Step,
		"replicas", plan.Replicas,
		"observedReplicas", plan.Status.Replicas,
		"readyReplicas", plan.Status.ReadyReplicas,
		"finalizing", req.Finalizing,
	)
	h.report(ctx, set, plan)

	return &syncapi.Response{
		Status:    plan.Status.ToMap(),
		Children:  children,
		Finalized: plan.Finalized,
	}, nil
}

func (h *Handler) report(ctx context.Context, set *v1alpha1.OrdinalSet, plan *Plan) {
	var kind model.TransitionKind
	var auditEvent string
	switch plan.Step {
	case StepAdd:
		kind, auditEvent = model.TransitionKindOrdinalAdded, logging.EventOrdinalAdded
	case StepRemove:
		kind, auditEvent = model.TransitionKindOrdinalRemoved, logging.EventOrdinalRemoved
	case StepFinalize:
		kind, auditEvent = model.TransitionKindFinalized, logging.EventFinalized
	default:
		return
	}

	fields := map[string]string{
		"controller": ControllerName,
		"parent":     set.Name,
		"namespace":  set.Namespace,
		"replicas":   strconv.FormatInt(plan.Replicas, 10),
	}
	transition := model.Transition{
		Controller: ControllerName,
		Parent: model.ParentRef{
			Kind:      v1alpha1.OrdinalSetKind.Kind,
			Name:      set.Name,
			Namespace: set.Namespace,
			UID:       string(set.UID),
		},
		Labels:   set.Labels,
		Kind:     kind,
		Replicas: &plan.Replicas,
	}
	if plan.Step != StepFinalize {
		ordinal := int64(plan.Changed)
		transition.Ordinal = &ordinal
		fields["ordinal"] = strconv.Itoa(plan.Changed)
	}

	logging.LogAuditEvent(log.FromContext(ctx), auditEvent, fields)
	h.notifier.Notify(ctx, transition)
}
