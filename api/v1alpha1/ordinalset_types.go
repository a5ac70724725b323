/*
Copyright 2024.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
)

// OrdinalSetSpec defines the desired state of OrdinalSet
type OrdinalSetSpec struct {
	// Replicas is the number of ordinals to keep running
	// +optional
	Replicas int64 `json:"replicas"`

	// ServiceName is the headless Service used as the pods' subdomain
	// +optional
	ServiceName string `json:"serviceName,omitempty"`

	// Selector is passed through untouched
	// +optional
	Selector map[string]any `json:"selector,omitempty"`

	// Template is the pod template every ordinal is generated from
	// +required
	Template map[string]any `json:"template"`

	// VolumeClaimTemplates produce one claim per ordinal and template
	// +optional
	VolumeClaimTemplates []map[string]any `json:"volumeClaimTemplates,omitempty"`
}

// OrdinalSetStatus is reported back on the parent after every sync
type OrdinalSetStatus struct {
	Replicas      int64 `json:"replicas"`
	ReadyReplicas int64 `json:"readyReplicas"`
}

// OrdinalSet is the typed view of an ordinalsets.ctl.apptrail.sh parent
type OrdinalSet struct {
	metav1.ObjectMeta `json:"metadata,omitzero"`

	Spec OrdinalSetSpec `json:"spec"`
}

// ToMap renders the status as a response status object.
func (s OrdinalSetStatus) ToMap() map[string]any {
	return map[string]any{
		"replicas":      s.Replicas,
		"readyReplicas": s.ReadyReplicas,
	}
}

// OrdinalSetFromUnstructured extracts the typed view from a parent object.
func OrdinalSetFromUnstructured(u *unstructured.Unstructured) (*OrdinalSet, error) {
	if u == nil {
		return nil, synerrors.Malformedf("parent object is missing")
	}
	if u.GetName() == "" {
		return nil, synerrors.Malformedf("parent has no metadata.name")
	}

	spec, err := nestedObject(u.Object, "spec")
	if err != nil {
		return nil, err
	}
	replicas, err := replicasOf(spec)
	if err != nil {
		return nil, err
	}
	template, err := nestedObject(spec, "template")
	if err != nil {
		return nil, err
	}
	selector, err := optionalObject(spec, "selector")
	if err != nil {
		return nil, err
	}
	serviceName, _, err := unstructured.NestedString(spec, "serviceName")
	if err != nil {
		return nil, synerrors.WrapMalformedInput(err)
	}

	claims, err := claimTemplatesOf(spec)
	if err != nil {
		return nil, err
	}

	return &OrdinalSet{
		ObjectMeta: objectMetaOf(u),
		Spec: OrdinalSetSpec{
			Replicas:             replicas,
			ServiceName:          serviceName,
			Selector:             selector,
			Template:             template,
			VolumeClaimTemplates: claims,
		},
	}, nil
}

func claimTemplatesOf(spec map[string]any) ([]map[string]any, error) {
	raw, found, err := unstructured.NestedSlice(spec, "volumeClaimTemplates")
	if err != nil {
		return nil, synerrors.WrapMalformedInput(err)
	}
	if !found {
		return nil, nil
	}

	claims := make([]map[string]any, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, item := range raw {
		claim, ok := item.(map[string]any)
		if !ok {
			return nil, synerrors.Malformedf("spec.volumeClaimTemplates[%d] is not an object", i)
		}
		name, _, _ := unstructured.NestedString(claim, "metadata", "name")
		if name == "" {
			return nil, synerrors.Malformedf("spec.volumeClaimTemplates[%d].metadata.name is required", i)
		}
		if seen[name] {
			return nil, synerrors.Malformedf("spec.volumeClaimTemplates has duplicate name %q", name)
		}
		seen[name] = true
		claims = append(claims, claim)
	}
	return claims, nil
}
