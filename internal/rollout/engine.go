// Package rollout decides the next step of a blue/green rollout from a parent spec and the
// observed Service and color ReplicaSets. Decide is pure; Handler adapts it to the sync API.
package rollout

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/apptrail-sh/synchooks/api/v1alpha1"
	"github.com/apptrail-sh/synchooks/internal/builder"
	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
	"github.com/apptrail-sh/synchooks/internal/structural"
)

const (
	ColorBlue  = "blue"
	ColorGreen = "green"
)

// Transition names the branch a decision took.
type Transition string

const (
	// TransitionSteady: the active group runs the current template.
	TransitionSteady Transition = "Steady"
	// TransitionPriming: the inactive group runs the current template and is scaling up.
	TransitionPriming Transition = "Priming"
	// TransitionSwapped: the primed inactive group became active.
	TransitionSwapped Transition = "Swapped"
	// TransitionRolloutStarted: a drained inactive group received the current template.
	TransitionRolloutStarted Transition = "RolloutStarted"
	// TransitionRolloutCancelled: a stale rollout was scaled down.
	TransitionRolloutCancelled Transition = "RolloutCancelled"
	// TransitionDraining: waiting for a cancelled rollout to finish draining.
	TransitionDraining Transition = "Draining"
)

// OtherColor returns the color opposite to c.
func OtherColor(c string) string {
	if c == ColorBlue {
		return ColorGreen
	}
	return ColorBlue
}

// Observed is the slice of observed state the engine reads. Nil fields mean absent.
type Observed struct {
	Service *unstructured.Unstructured
	Blue    *unstructured.Unstructured
	Green   *unstructured.Unstructured
}

func (o Observed) group(color string) *unstructured.Unstructured {
	if color == ColorBlue {
		return o.Blue
	}
	return o.Green
}

// Decision is the outcome of one Decide call.
type Decision struct {
	// ActiveColor is the color the Service selects after this decision.
	ActiveColor string

	ActiveReplicas   int64
	ActiveTemplate   map[string]any
	InactiveReplicas int64
	InactiveTemplate map[string]any

	Transition Transition
	Status     v1alpha1.BlueGreenDeploymentStatus

	// ActiveRevision and InactiveRevision are the template revisions of the resolved groups.
	ActiveRevision   string
	InactiveRevision string
}

// Decide computes the desired replica counts and templates for both colors.
func Decide(bgd *v1alpha1.BlueGreenDeployment, observed Observed) (*Decision, error) {
	activeColor, err := observedActiveColor(observed.Service)
	if err != nil {
		return nil, err
	}
	inactiveColor := OtherColor(activeColor)

	active, err := observeGroup(bgd.Name, activeColor, observed.group(activeColor))
	if err != nil {
		return nil, err
	}
	inactive, err := observeGroup(bgd.Name, inactiveColor, observed.group(inactiveColor))
	if err != nil {
		return nil, err
	}

	d := &Decision{
		ActiveColor: activeColor,
		Status: v1alpha1.BlueGreenDeploymentStatus{
			ActiveColor: activeColor,
			Active:      active.observedStatus(),
			Inactive:    inactive.observedStatus(),
		},
		ActiveReplicas:   bgd.Spec.Replicas,
		ActiveTemplate:   bgd.Spec.Template,
		InactiveReplicas: 0,
		InactiveTemplate: bgd.Spec.Template,
	}
	if active != nil {
		d.ActiveReplicas = active.replicas
		d.ActiveTemplate = active.template
	}
	if inactive != nil {
		d.InactiveReplicas = inactive.replicas
		d.InactiveTemplate = inactive.template
	}

	target := bgd.Spec.Replicas
	switch {
	case structural.Equal(d.ActiveTemplate, bgd.Spec.Template):
		d.ActiveReplicas = target
		d.InactiveReplicas = 0
		d.Transition = TransitionSteady

	case structural.Equal(d.InactiveTemplate, bgd.Spec.Template):
		d.InactiveReplicas = target
		d.Transition = TransitionPriming
		if available, ok := inactive.availableReplicas(); ok && available == target {
			d.ActiveColor = inactiveColor
			d.ActiveReplicas, d.InactiveReplicas = d.InactiveReplicas, d.ActiveReplicas
			d.ActiveTemplate, d.InactiveTemplate = d.InactiveTemplate, d.ActiveTemplate
			d.Transition = TransitionSwapped
		}

	case inactive.drained():
		d.InactiveReplicas = target
		d.InactiveTemplate = bgd.Spec.Template
		d.Transition = TransitionRolloutStarted

	default:
		if d.InactiveReplicas > 0 {
			d.Transition = TransitionRolloutCancelled
		} else {
			d.Transition = TransitionDraining
		}
		d.InactiveReplicas = 0
	}

	if d.ActiveRevision, err = structural.Revision(d.ActiveTemplate); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("active template: %w", err))
	}
	if d.InactiveRevision, err = structural.Revision(d.InactiveTemplate); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("inactive template: %w", err))
	}
	return d, nil
}

// Children renders the decision in apply order: Service, active group, inactive group.
func (d *Decision) Children(bgd *v1alpha1.BlueGreenDeployment) ([]*unstructured.Unstructured, error) {
	svc, err := builder.BuildService(bgd, d.ActiveColor)
	if err != nil {
		return nil, err
	}
	activeGroup, err := builder.BuildChildGroup(bgd, d.ActiveColor, d.ActiveReplicas, d.ActiveTemplate)
	if err != nil {
		return nil, err
	}
	inactiveGroup, err := builder.BuildChildGroup(bgd, OtherColor(d.ActiveColor), d.InactiveReplicas, d.InactiveTemplate)
	if err != nil {
		return nil, err
	}
	return []*unstructured.Unstructured{svc, activeGroup, inactiveGroup}, nil
}

// observedActiveColor reads the color the Service currently selects. No Service means blue.
func observedActiveColor(svc *unstructured.Unstructured) (string, error) {
	if svc == nil {
		return ColorBlue, nil
	}
	color, found, err := unstructured.NestedString(svc.Object, "spec", "selector", builder.LabelColor)
	if err != nil {
		return "", synerrors.WrapMalformedInput(fmt.Errorf("service %q selector: %w", svc.GetName(), err))
	}
	if !found {
		return "", synerrors.Malformedf("service %q has no spec.selector.%s", svc.GetName(), builder.LabelColor)
	}
	if color != ColorBlue && color != ColorGreen {
		return "", synerrors.Invariantf("service %q selects unknown color %q", svc.GetName(), color)
	}
	return color, nil
}
