package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldPublish(t *testing.T) {
	tests := []struct {
		name      string
		config    EventFilterConfig
		kind      string
		namespace string
		labels    map[string]string
		want      bool
	}{
		{
			name:      "empty config publishes everything",
			kind:      "COLOR_SWAPPED",
			namespace: "default",
			want:      true,
		},
		{
			name:      "excluded namespace",
			config:    EventFilterConfig{ExcludeNamespaces: []string{"kube-*"}},
			kind:      "COLOR_SWAPPED",
			namespace: "kube-system",
			want:      false,
		},
		{
			name:      "namespace glob matches",
			config:    EventFilterConfig{Namespaces: []string{"prod-*"}},
			kind:      "COLOR_SWAPPED",
			namespace: "prod-eu",
			want:      true,
		},
		{
			name:      "namespace glob misses",
			config:    EventFilterConfig{Namespaces: []string{"prod-*"}},
			kind:      "COLOR_SWAPPED",
			namespace: "staging",
			want:      false,
		},
		{
			name:      "exclusion wins over inclusion",
			config:    EventFilterConfig{Namespaces: []string{"prod-*"}, ExcludeNamespaces: []string{"prod-test"}},
			kind:      "COLOR_SWAPPED",
			namespace: "prod-test",
			want:      false,
		},
		{
			name:      "required label missing",
			config:    EventFilterConfig{RequireLabels: []string{"team"}},
			kind:      "ORDINAL_ADDED",
			namespace: "default",
			labels:    map[string]string{"app": "db"},
			want:      false,
		},
		{
			name:      "excluded label value",
			config:    EventFilterConfig{ExcludeLabels: []string{"silence=true"}},
			kind:      "ORDINAL_ADDED",
			namespace: "default",
			labels:    map[string]string{"silence": "true"},
			want:      false,
		},
		{
			name:      "excluded label with other value",
			config:    EventFilterConfig{ExcludeLabels: []string{"silence=true"}},
			kind:      "ORDINAL_ADDED",
			namespace: "default",
			labels:    map[string]string{"silence": "false"},
			want:      true,
		},
		{
			name:      "excluded label key only",
			config:    EventFilterConfig{ExcludeLabels: []string{"silence"}},
			kind:      "ORDINAL_ADDED",
			namespace: "default",
			labels:    map[string]string{"silence": ""},
			want:      false,
		},
		{
			name:      "kind filter matches case-insensitively",
			config:    EventFilterConfig{Kinds: []string{"color_swapped"}},
			kind:      "COLOR_SWAPPED",
			namespace: "default",
			want:      true,
		},
		{
			name:      "kind filter rejects other kinds",
			config:    EventFilterConfig{Kinds: []string{"COLOR_SWAPPED"}},
			kind:      "ORDINAL_ADDED",
			namespace: "default",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewEventFilter(tt.config)
			assert.Equal(t, tt.want, f.ShouldPublish(tt.kind, tt.namespace, tt.labels))
		})
	}
}

func TestNilFilterPublishesEverything(t *testing.T) {
	var f *EventFilter
	assert.True(t, f.ShouldPublish("FINALIZED", "kube-system", nil))
}
