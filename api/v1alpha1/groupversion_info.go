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

// Package v1alpha1 contains typed views of the parent resources served by the sync hooks.
// +groupName=ctl.apptrail.sh
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const GroupName = "ctl.apptrail.sh"

var (
	// GroupVersion is group version used to register these objects
	GroupVersion = schema.GroupVersion{Group: GroupName, Version: "v1alpha1"}

	BlueGreenDeploymentKind = GroupVersion.WithKind("BlueGreenDeployment")
	OrdinalSetKind          = GroupVersion.WithKind("OrdinalSet")
)

// defaultReplicas matches the apps/v1 default for an unset replica count.
const defaultReplicas int64 = 1
