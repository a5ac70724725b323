package ordinal

import (
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
)

// ordinalOf extracts n from "<base>-<n>". Names with another prefix, a non-numeric suffix
// or leading zeros are not ordinal names.
func ordinalOf(base, name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, base+"-")
	if !ok || suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || strconv.Itoa(n) != suffix {
		return 0, false
	}
	return n, true
}

// isRunningAndReady reports whether a pod is Running, not terminating and has a Ready=True
// condition. A nil pod or a status that does not decode is not ready.
func isRunningAndReady(pod *unstructured.Unstructured) bool {
	if pod == nil || pod.GetDeletionTimestamp() != nil {
		return false
	}
	raw, found, err := unstructured.NestedMap(pod.Object, "status")
	if err != nil || !found {
		return false
	}
	var status corev1.PodStatus
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(raw, &status); err != nil {
		return false
	}
	if status.Phase != corev1.PodRunning {
		return false
	}
	for _, condition := range status.Conditions {
		if condition.Type == corev1.PodReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}
