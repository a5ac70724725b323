package syncapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Request is the object sent as JSON to the sync and finalize hooks.
type Request struct {
	// Controller is the controller definition that invoked the hook; accepted and not interpreted.
	Controller json.RawMessage           `json:"controller,omitempty"`
	Parent     *unstructured.Unstructured `json:"parent"`
	Children   ChildMap                   `json:"children"`
	Related    ChildMap                   `json:"related,omitempty"`
	Finalizing bool                       `json:"finalizing"`
}

// Response is the JSON returned by the sync and finalize hooks.
// Children order is significant to the apply engine.
type Response struct {
	Status   map[string]any               `json:"status"`
	Children []*unstructured.Unstructured `json:"children"`

	ResyncAfterSeconds float64 `json:"resyncAfterSeconds,omitempty"`

	// Finalized is only meaningful for finalize requests.
	Finalized bool `json:"finalized,omitempty"`
}

// GroupVersionKind is the opaque composite key of the children map. Its text form is
// "<Kind>.<apiVersion>", e.g. "Pod.v1" or "ReplicaSet.apps/v1".
type GroupVersionKind struct {
	schema.GroupVersionKind
}

// MarshalText implements encoding.TextMarshaler
func (gvk GroupVersionKind) MarshalText() ([]byte, error) {
	return []byte(gvk.Kind + "." + gvk.GroupVersion().String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (gvk *GroupVersionKind) UnmarshalText(text []byte) error {
	kind, apiVersion, ok := strings.Cut(string(text), ".")
	if !ok || kind == "" || apiVersion == "" {
		return fmt.Errorf("could not parse children key %q, expected '<Kind>.<apiVersion>'", string(text))
	}
	gv, err := schema.ParseGroupVersion(apiVersion)
	if err != nil {
		return fmt.Errorf("could not parse children key %q: %w", string(text), err)
	}
	*gvk = GroupVersionKind{gv.WithKind(kind)}
	return nil
}

// ChildMap holds observed objects keyed by type and then by name.
type ChildMap map[GroupVersionKind]map[string]*unstructured.Unstructured

// Get returns the objects of one type. The result may be nil and must not be mutated.
func (m ChildMap) Get(gvk schema.GroupVersionKind) map[string]*unstructured.Unstructured {
	return m[GroupVersionKind{gvk}]
}

// Insert adds obj under its own type and name.
func (m ChildMap) Insert(obj *unstructured.Unstructured) {
	key := GroupVersionKind{obj.GroupVersionKind()}
	if m[key] == nil {
		m[key] = make(map[string]*unstructured.Unstructured)
	}
	m[key][obj.GetName()] = obj
}

// Len returns the total number of objects across all types.
func (m ChildMap) Len() int {
	n := 0
	for _, objects := range m {
		n += len(objects)
	}
	return n
}

// MakeChildMap builds a ChildMap from a flat list of objects.
func MakeChildMap(objects []*unstructured.Unstructured) ChildMap {
	m := make(ChildMap)
	for _, obj := range objects {
		m.Insert(obj)
	}
	return m
}
