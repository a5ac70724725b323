package rollout

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/apptrail-sh/synchooks/internal/builder"
	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
	"github.com/apptrail-sh/synchooks/internal/structural"
)

// groupView is the part of an observed color ReplicaSet the engine depends on.
type groupView struct {
	color    string
	replicas int64
	template map[string]any
	status   map[string]any
}

// observeGroup parses an observed ReplicaSet. A nil object yields a nil view.
func observeGroup(parent, color string, rs *unstructured.Unstructured) (*groupView, error) {
	if rs == nil {
		return nil, nil
	}
	name := builder.GroupName(parent, color)

	if label, ok := rs.GetLabels()[builder.LabelColor]; ok && label != color {
		return nil, synerrors.Invariantf("ReplicaSet %q carries color %q", name, label)
	}

	provenance, ok := rs.GetAnnotations()[builder.AnnotationPodTemplate]
	if !ok {
		return nil, synerrors.Malformedf("ReplicaSet %q has no %s annotation", name, builder.AnnotationPodTemplate)
	}
	template, err := structural.UnmarshalObject(provenance)
	if err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("ReplicaSet %q annotation %s: %w", name, builder.AnnotationPodTemplate, err))
	}

	raw, found, _ := unstructured.NestedFieldNoCopy(rs.Object, "spec", "replicas")
	if !found {
		return nil, synerrors.Malformedf("ReplicaSet %q has no spec.replicas", name)
	}
	replicas, ok := structural.AsInt64(raw)
	if !ok {
		return nil, synerrors.Malformedf("ReplicaSet %q spec.replicas must be an integer", name)
	}

	status, _, err := unstructured.NestedMap(rs.Object, "status")
	if err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("ReplicaSet %q status: %w", name, err))
	}

	return &groupView{
		color:    color,
		replicas: replicas,
		template: template,
		status:   status,
	}, nil
}

func (g *groupView) observedStatus() map[string]any {
	if g == nil {
		return nil
	}
	return g.status
}

func (g *groupView) statusInt(field string) (int64, bool) {
	if g == nil || g.status == nil {
		return 0, false
	}
	raw, found := g.status[field]
	if !found {
		return 0, false
	}
	return structural.AsInt64(raw)
}

// availableReplicas treats an absent field in a present status as zero, since the
// ReplicaSet controller omits zero counts. A zero target therefore swaps on an empty status.
func (g *groupView) availableReplicas() (int64, bool) {
	if g == nil || g.status == nil {
		return 0, false
	}
	if _, found := g.status["availableReplicas"]; !found {
		return 0, true
	}
	return g.statusInt("availableReplicas")
}

// drained reports whether the group is present, scaled to zero and has no pods left.
func (g *groupView) drained() bool {
	if g == nil || g.replicas != 0 {
		return false
	}
	observed, ok := g.statusInt("replicas")
	return ok && observed == 0
}
