// Package builder materializes the child objects reported back by the sync hooks.
// Every constructor is pure: the same parent view always yields the same object.
package builder

import (
	"fmt"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/apptrail-sh/synchooks/api/v1alpha1"
	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
	"github.com/apptrail-sh/synchooks/internal/structural"
)

const (
	// LabelColor discriminates the blue and green ReplicaSets and their pods.
	LabelColor = "color"

	// AnnotationPodTemplate stores the canonical JSON of the template a ReplicaSet was built from.
	AnnotationPodTemplate = "bluegreendeployments." + v1alpha1.GroupName + "/pod-template-json"
	// AnnotationTemplateRevision is a short digest of AnnotationPodTemplate for humans and selectors.
	AnnotationTemplateRevision = "bluegreendeployments." + v1alpha1.GroupName + "/pod-template-revision"
)

var (
	ReplicaSetGVK = appsv1.SchemeGroupVersion.WithKind("ReplicaSet")
	ServiceGVK    = corev1.SchemeGroupVersion.WithKind("Service")
	PodGVK        = corev1.SchemeGroupVersion.WithKind("Pod")
	ClaimGVK      = corev1.SchemeGroupVersion.WithKind("PersistentVolumeClaim")
)

// GroupName returns the ReplicaSet name for a color, e.g. "web-blue".
func GroupName(parent, color string) string {
	return parent + "-" + color
}

// PodName returns the pod name for an ordinal, e.g. "db-2".
func PodName(parent string, ordinal int) string {
	return parent + "-" + strconv.Itoa(ordinal)
}

// ClaimBaseName returns the common prefix of every claim generated from a claim template.
func ClaimBaseName(claimTemplate, parent string) string {
	return claimTemplate + "-" + parent
}

// ClaimName returns the claim name bound to an ordinal, e.g. "data-db-2".
func ClaimName(claimTemplate, parent string, ordinal int) string {
	return ClaimBaseName(claimTemplate, parent) + "-" + strconv.Itoa(ordinal)
}

// BuildChildGroup builds the ReplicaSet for one color from the given template and replica count.
// The template is recorded in AnnotationPodTemplate so later calls detect drift by comparison.
func BuildChildGroup(bgd *v1alpha1.BlueGreenDeployment, color string, replicas int64, template map[string]any) (*unstructured.Unstructured, error) {
	provenance, err := structural.Marshal(template)
	if err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template: %w", err))
	}
	revision, err := structural.Revision(template)
	if err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template: %w", err))
	}

	labels, err := templateLabels(template)
	if err != nil {
		return nil, err
	}
	labels[LabelColor] = color

	podTemplate := structural.CloneObject(template)
	if err := unstructured.SetNestedField(podTemplate, color, "metadata", "labels", LabelColor); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template labels: %w", err))
	}

	selector := structural.CloneObject(bgd.Spec.Selector)
	if selector == nil {
		selector = map[string]any{}
	}
	if err := unstructured.SetNestedField(selector, color, "matchLabels", LabelColor); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("selector: %w", err))
	}

	spec := map[string]any{
		"replicas": replicas,
		"selector": selector,
		"template": podTemplate,
	}
	if bgd.Spec.MinReadySeconds != nil {
		spec["minReadySeconds"] = *bgd.Spec.MinReadySeconds
	}

	rs := &unstructured.Unstructured{Object: map[string]any{
		"metadata": map[string]any{
			"name":   GroupName(bgd.Name, color),
			"labels": labels,
			"annotations": map[string]any{
				AnnotationPodTemplate:      provenance,
				AnnotationTemplateRevision: revision,
			},
		},
		"spec": spec,
	}}
	rs.SetGroupVersionKind(ReplicaSetGVK)
	return rs, nil
}

// BuildService builds the Service from the parent's service template, selecting the given color.
func BuildService(bgd *v1alpha1.BlueGreenDeployment, color string) (*unstructured.Unstructured, error) {
	if bgd.Spec.Service == nil {
		return nil, synerrors.Malformedf("spec.service is required")
	}
	svc := &unstructured.Unstructured{Object: structural.CloneObject(bgd.Spec.Service)}
	svc.SetGroupVersionKind(ServiceGVK)
	if err := unstructured.SetNestedField(svc.Object, color, "spec", "selector", LabelColor); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("spec.service.spec.selector: %w", err))
	}
	return svc, nil
}

// BuildPod builds the pod for one ordinal from the set's current template. The ordinal name
// doubles as hostname; each claim template is mounted as a volume bound to the ordinal's claim.
func BuildPod(set *v1alpha1.OrdinalSet, ordinal int) (*unstructured.Unstructured, error) {
	name := PodName(set.Name, ordinal)
	pod := &unstructured.Unstructured{Object: structural.CloneObject(set.Spec.Template)}
	pod.SetGroupVersionKind(PodGVK)

	if err := unstructured.SetNestedField(pod.Object, name, "metadata", "name"); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template metadata: %w", err))
	}
	if err := unstructured.SetNestedField(pod.Object, name, "spec", "hostname"); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template spec: %w", err))
	}
	if set.Spec.ServiceName != "" {
		if err := unstructured.SetNestedField(pod.Object, set.Spec.ServiceName, "spec", "subdomain"); err != nil {
			return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template spec: %w", err))
		}
	}

	if len(set.Spec.VolumeClaimTemplates) == 0 {
		return pod, nil
	}

	volumes, _, err := unstructured.NestedSlice(pod.Object, "spec", "volumes")
	if err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template volumes: %w", err))
	}
	for _, claim := range set.Spec.VolumeClaimTemplates {
		claimTemplate, _, _ := unstructured.NestedString(claim, "metadata", "name")
		volumes = append(volumes, map[string]any{
			"name": claimTemplate,
			"persistentVolumeClaim": map[string]any{
				"claimName": ClaimName(claimTemplate, set.Name, ordinal),
			},
		})
	}
	if err := unstructured.SetNestedSlice(pod.Object, volumes, "spec", "volumes"); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template volumes: %w", err))
	}
	return pod, nil
}

// BuildClaim builds a PersistentVolumeClaim with the given name from a claim template.
func BuildClaim(name string, template map[string]any) (*unstructured.Unstructured, error) {
	claim := &unstructured.Unstructured{Object: structural.CloneObject(template)}
	if claim.Object == nil {
		claim.Object = map[string]any{}
	}
	claim.SetGroupVersionKind(ClaimGVK)
	if err := unstructured.SetNestedField(claim.Object, name, "metadata", "name"); err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("claim template metadata: %w", err))
	}
	return claim, nil
}

func templateLabels(template map[string]any) (map[string]any, error) {
	raw, found, err := unstructured.NestedFieldNoCopy(template, "metadata", "labels")
	if err != nil {
		return nil, synerrors.WrapMalformedInput(fmt.Errorf("pod template labels: %w", err))
	}
	if !found || raw == nil {
		return map[string]any{}, nil
	}
	labels, ok := raw.(map[string]any)
	if !ok {
		return nil, synerrors.Malformedf("pod template metadata.labels must be an object")
	}
	return structural.CloneObject(labels), nil
}
