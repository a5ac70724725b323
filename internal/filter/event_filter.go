package filter

import (
	"path/filepath"
	"strings"
)

// EventFilterConfig holds the configuration for transition event filtering
type EventFilterConfig struct {
	// Namespace filtering
	Namespaces        []string // Glob patterns for parent namespaces to publish (e.g., "production-*")
	ExcludeNamespaces []string // Glob patterns for parent namespaces to skip (e.g., "kube-system")

	// Label filtering
	RequireLabels []string // Label keys that must be present on the parent (e.g., "app.kubernetes.io/part-of")
	ExcludeLabels []string // Label key=value pairs that cause exclusion (e.g., "synchooks.apptrail.sh/silence=true")

	// Kinds restricts publishing to these transition kinds. Empty publishes all.
	Kinds []string
}

// EventFilter decides which transition events leave the process
type EventFilter struct {
	config EventFilterConfig
}

// NewEventFilter creates a new event filter
func NewEventFilter(config EventFilterConfig) *EventFilter {
	return &EventFilter{config: config}
}

// ShouldPublish returns true if an event of the given kind for a parent should be published
func (f *EventFilter) ShouldPublish(kind, namespace string, labels map[string]string) bool {
	if f == nil {
		return true
	}
	return f.matchKind(kind) && f.matchNamespace(namespace) && f.matchLabels(labels)
}

func (f *EventFilter) matchKind(kind string) bool {
	if len(f.config.Kinds) == 0 {
		return true
	}
	for _, k := range f.config.Kinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}

func (f *EventFilter) matchNamespace(namespace string) bool {
	// Check exclusions first
	for _, pattern := range f.config.ExcludeNamespaces {
		if matchGlob(pattern, namespace) {
			return false
		}
	}

	if len(f.config.Namespaces) == 0 {
		return true
	}

	for _, pattern := range f.config.Namespaces {
		if matchGlob(pattern, namespace) {
			return true
		}
	}

	return false
}

func (f *EventFilter) matchLabels(labels map[string]string) bool {
	for _, requiredKey := range f.config.RequireLabels {
		if _, exists := labels[requiredKey]; !exists {
			return false
		}
	}

	for _, exclusion := range f.config.ExcludeLabels {
		key, value := parseKeyValue(exclusion)
		if labelValue, exists := labels[key]; exists {
			if value == "" || labelValue == value {
				return false
			}
		}
	}

	return true
}

// matchGlob performs a simple glob match (supports * wildcard)
func matchGlob(pattern, s string) bool {
	matched, err := filepath.Match(pattern, s)
	if err != nil {
		return false
	}
	return matched
}

// parseKeyValue parses a "key=value" or "key" string
func parseKeyValue(s string) (key, value string) {
	key, value, _ = strings.Cut(s, "=")
	return
}
