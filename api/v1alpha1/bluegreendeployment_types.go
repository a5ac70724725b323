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
	"github.com/apptrail-sh/synchooks/internal/structural"
)

// BlueGreenDeploymentSpec defines the desired state of BlueGreenDeployment.
// Template, Selector and Service are kept as schemaless trees: the template is compared
// structurally against provenance annotations, so it must not pass through a typed round trip.
type BlueGreenDeploymentSpec struct {
	// Replicas is the target replica count for the active color
	// +optional
	Replicas int64 `json:"replicas"`

	// MinReadySeconds is propagated to both ReplicaSets
	// +optional
	MinReadySeconds *int64 `json:"minReadySeconds,omitempty"`

	// Selector is the label selector shared by both colors
	// +optional
	Selector map[string]any `json:"selector,omitempty"`

	// Template is the pod template rolled out to the inactive color
	// +required
	Template map[string]any `json:"template"`

	// Service is the template of the Service whose selector picks the active color
	// +required
	Service map[string]any `json:"service"`
}

// BlueGreenDeploymentStatus is reported back on the parent after every sync.
type BlueGreenDeploymentStatus struct {
	ActiveColor string         `json:"activeColor"`
	Active      map[string]any `json:"active"`
	Inactive    map[string]any `json:"inactive"`
}

// BlueGreenDeployment is the typed view of a bluegreendeployments.ctl.apptrail.sh parent.
type BlueGreenDeployment struct {
	metav1.ObjectMeta `json:"metadata,omitzero"`

	Spec BlueGreenDeploymentSpec `json:"spec"`
}

// ServiceName returns the name of the Service template.
func (b *BlueGreenDeployment) ServiceName() string {
	name, _, _ := unstructured.NestedString(b.Spec.Service, "metadata", "name")
	return name
}

// ToMap renders the status as a response status object.
func (s BlueGreenDeploymentStatus) ToMap() map[string]any {
	active := structural.CloneObject(s.Active)
	if active == nil {
		active = map[string]any{}
	}
	inactive := structural.CloneObject(s.Inactive)
	if inactive == nil {
		inactive = map[string]any{}
	}
	return map[string]any{
		"activeColor": s.ActiveColor,
		"active":      active,
		"inactive":    inactive,
	}
}

// BlueGreenDeploymentFromUnstructured extracts the typed view from a parent object.
func BlueGreenDeploymentFromUnstructured(u *unstructured.Unstructured) (*BlueGreenDeployment, error) {
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
	service, err := nestedObject(spec, "service")
	if err != nil {
		return nil, err
	}
	if name, _, _ := unstructured.NestedString(service, "metadata", "name"); name == "" {
		return nil, synerrors.Malformedf("spec.service.metadata.name is required")
	}
	selector, err := optionalObject(spec, "selector")
	if err != nil {
		return nil, err
	}
	minReady, err := optionalInt(spec, "minReadySeconds")
	if err != nil {
		return nil, err
	}

	return &BlueGreenDeployment{
		ObjectMeta: objectMetaOf(u),
		Spec: BlueGreenDeploymentSpec{
			Replicas:        replicas,
			MinReadySeconds: minReady,
			Selector:        selector,
			Template:        template,
			Service:         service,
		},
	}, nil
}
