// Package ordinal plans ordinal-indexed pods with stable names and per-ordinal claims.
// Pods are added one at a time in ascending order, each only after every lower ordinal is
// ready, and removed one at a time from the highest ordinal. Claims outlive scale-down.
package ordinal

import (
	"slices"
	"sort"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/apptrail-sh/synchooks/api/v1alpha1"
	"github.com/apptrail-sh/synchooks/internal/builder"
)

// Step names what a plan changes.
type Step string

const (
	StepSteady   Step = "Steady"
	StepAdd      Step = "OrdinalAdded"
	StepRemove   Step = "OrdinalRemoved"
	StepWaiting  Step = "WaitingForReady"
	StepFinalize Step = "Finalized"
)

type claimRef struct {
	name     string
	template map[string]any
}

// Plan is the outcome of one planning call.
type Plan struct {
	// Replicas is the effective target: zero while finalizing.
	Replicas int64
	// Ordinals holds the desired pod ordinals in descending order.
	Ordinals []int
	// Changed is the ordinal added or removed by this plan, when Step is StepAdd or StepRemove.
	Changed int

	Step      Step
	Finalized bool
	Status    v1alpha1.OrdinalSetStatus

	claims []claimRef
}

// NewPlan computes the desired pods and claims from the observed pods and claims, keyed by name.
func NewPlan(set *v1alpha1.OrdinalSet, pods, claims map[string]*unstructured.Unstructured, finalizing bool) *Plan {
	replicas := set.Spec.Replicas
	if finalizing {
		replicas = 0
	}

	observed := make(map[int]*unstructured.Unstructured, len(pods))
	for name, pod := range pods {
		if n, ok := ordinalOf(set.Name, name); ok {
			observed[n] = pod
		}
	}

	ready := 0
	for int64(ready) < replicas && isRunningAndReady(observed[ready]) {
		ready++
	}

	p := &Plan{
		Replicas: replicas,
		Step:     StepSteady,
		Changed:  -1,
		Status: v1alpha1.OrdinalSetStatus{
			Replicas:      int64(len(observed)),
			ReadyReplicas: int64(ready),
		},
	}

	desired := make(map[int]bool, len(observed)+1)
	for n := range observed {
		desired[n] = true
	}
	switch {
	case int64(ready) < replicas && !desired[ready]:
		desired[ready] = true
		p.Step, p.Changed = StepAdd, ready
	case int64(ready) < replicas:
		p.Step = StepWaiting
	case len(desired) > 0:
		highest := slices.Max(keys(desired))
		if int64(highest) >= replicas {
			delete(desired, highest)
			p.Step, p.Changed = StepRemove, highest
		}
	}

	p.Ordinals = keys(desired)
	sort.Sort(sort.Reverse(sort.IntSlice(p.Ordinals)))

	if finalizing {
		p.Finalized = len(observed) == 0
		if p.Finalized {
			p.Step = StepFinalize
		}
	}

	p.claims = planClaims(set, replicas, claims)
	return p
}

// planClaims lists the claims for [0, replicas) per template, followed by observed claims
// beyond replicas, which are retained in ordinal order.
func planClaims(set *v1alpha1.OrdinalSet, replicas int64, observed map[string]*unstructured.Unstructured) []claimRef {
	var refs []claimRef
	for _, template := range set.Spec.VolumeClaimTemplates {
		templateName, _, _ := unstructured.NestedString(template, "metadata", "name")
		for i := 0; int64(i) < replicas; i++ {
			refs = append(refs, claimRef{name: builder.ClaimName(templateName, set.Name, i), template: template})
		}

		base := builder.ClaimBaseName(templateName, set.Name)
		var retained []int
		for name := range observed {
			if n, ok := ordinalOf(base, name); ok && int64(n) >= replicas {
				retained = append(retained, n)
			}
		}
		sort.Ints(retained)
		for _, n := range retained {
			refs = append(refs, claimRef{name: builder.ClaimName(templateName, set.Name, n), template: template})
		}
	}
	return refs
}

// Children renders pods in descending ordinal order followed by claims.
func (p *Plan) Children(set *v1alpha1.OrdinalSet) ([]*unstructured.Unstructured, error) {
	children := make([]*unstructured.Unstructured, 0, len(p.Ordinals)+len(p.claims))
	for _, n := range p.Ordinals {
		pod, err := builder.BuildPod(set, n)
		if err != nil {
			return nil, err
		}
		children = append(children, pod)
	}
	for _, ref := range p.claims {
		claim, err := builder.BuildClaim(ref.name, ref.template)
		if err != nil {
			return nil, err
		}
		children = append(children, claim)
	}
	return children, nil
}

func keys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
