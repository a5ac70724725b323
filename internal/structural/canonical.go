package structural

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	utiljson "k8s.io/apimachinery/pkg/util/json"
)

const revisionLength = 16

// Marshal serializes a tree to JSON with sorted object keys, so equal trees produce
// byte-identical output regardless of map iteration order. Integers keep full int64
// precision and parse back to the same value.
func Marshal(v any) (string, error) {
	data, err := utiljson.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	return string(data), nil
}

// Unmarshal parses JSON into a tree. Integral numbers decode as int64, others as float64.
func Unmarshal(s string) (any, error) {
	var out any
	if err := utiljson.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnmarshalObject parses JSON that must hold an object.
func UnmarshalObject(s string) (map[string]any, error) {
	v, err := Unmarshal(s)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", KindOf(v))
	}
	return obj, nil
}

// Revision returns a short deterministic digest of the RFC 8785 canonical form of v.
// It labels templates for humans and events; decisions compare the trees themselves.
func Revision(v any) (string, error) {
	data, err := utiljson.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal value: %w", err)
	}
	canonical, err := jsoncanonicalizer.Transform(data)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize value: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:revisionLength], nil
}
