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
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	synerrors "github.com/apptrail-sh/synchooks/internal/errors"
	"github.com/apptrail-sh/synchooks/internal/structural"
)

func objectMetaOf(u *unstructured.Unstructured) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:      u.GetName(),
		Namespace: u.GetNamespace(),
		UID:       u.GetUID(),
		Labels:    u.GetLabels(),
	}
}

// nestedObject returns a deep copy of a required object field.
func nestedObject(obj map[string]any, fields ...string) (map[string]any, error) {
	value, found, err := unstructured.NestedFieldNoCopy(obj, fields...)
	if err != nil {
		return nil, synerrors.WrapMalformedInput(err)
	}
	if !found || value == nil {
		return nil, synerrors.Malformedf("%s is required", strings.Join(fields, "."))
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, synerrors.Malformedf("%s must be an object, got %s", strings.Join(fields, "."), structural.KindOf(value))
	}
	return structural.CloneObject(m), nil
}

func optionalObject(obj map[string]any, fields ...string) (map[string]any, error) {
	value, found, _ := unstructured.NestedFieldNoCopy(obj, fields...)
	if !found || value == nil {
		return nil, nil
	}
	return nestedObject(obj, fields...)
}

func optionalInt(obj map[string]any, fields ...string) (*int64, error) {
	value, found, err := unstructured.NestedFieldNoCopy(obj, fields...)
	if err != nil {
		return nil, synerrors.WrapMalformedInput(err)
	}
	if !found || value == nil {
		return nil, nil
	}
	n, ok := structural.AsInt64(value)
	if !ok {
		return nil, synerrors.Malformedf("%s must be an integer", strings.Join(fields, "."))
	}
	return &n, nil
}

func replicasOf(spec map[string]any) (int64, error) {
	replicas, err := optionalInt(spec, "replicas")
	if err != nil {
		return 0, err
	}
	if replicas == nil {
		return defaultReplicas, nil
	}
	if *replicas < 0 {
		return 0, synerrors.Malformedf("spec.replicas must not be negative, got %d", *replicas)
	}
	return *replicas, nil
}
