package structural

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) any {
	t.Helper()
	v, err := Unmarshal(s)
	require.NoError(t, err)
	return v
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		value any
		want  Kind
	}{
		{value: nil, want: KindNull},
		{value: true, want: KindBool},
		{value: int64(1), want: KindNumber},
		{value: 1.5, want: KindNumber},
		{value: json.Number("7"), want: KindNumber},
		{value: "x", want: KindString},
		{value: []any{}, want: KindArray},
		{value: map[string]any{}, want: KindObject},
		{value: struct{}{}, want: KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.value))
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "identical objects", a: `{"a":1,"b":{"c":[1,2]}}`, b: `{"b":{"c":[1,2]},"a":1}`, want: true},
		{name: "key missing on right", a: `{"a":1,"b":2}`, b: `{"a":1}`, want: false},
		{name: "key missing on left", a: `{"a":1}`, b: `{"a":1,"b":2}`, want: false},
		{name: "null versus missing", a: `{"a":null}`, b: `{}`, want: false},
		{name: "null versus empty object", a: `null`, b: `{}`, want: false},
		{name: "array order matters", a: `[1,2]`, b: `[2,1]`, want: false},
		{name: "array length", a: `[1]`, b: `[1,1]`, want: false},
		{name: "int equals float", a: `{"n":3}`, b: `{"n":3.0}`, want: true},
		{name: "different numbers", a: `{"n":3}`, b: `{"n":3.5}`, want: false},
		{name: "string versus number", a: `"3"`, b: `3`, want: false},
		{name: "nested label drift", a: `{"metadata":{"labels":{"app":"web"}}}`, b: `{"metadata":{"labels":{"app":"api"}}}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := mustParse(t, tt.a), mustParse(t, tt.b)
			assert.Equal(t, tt.want, Equal(a, b))
			assert.Equal(t, tt.want, Equal(b, a), "equality must be symmetric")
		})
	}
}

func TestEqualMixedIntegerTypes(t *testing.T) {
	assert.True(t, Equal(int64(3), 3))
	assert.True(t, Equal(json.Number("3"), int64(3)))
	assert.False(t, Equal(struct{}{}, struct{}{}))
}

func TestCloneIsDeep(t *testing.T) {
	orig := mustParse(t, `{"metadata":{"labels":{"app":"web"}},"spec":{"containers":[{"name":"c"}]}}`).(map[string]any)
	clone := CloneObject(orig)
	require.True(t, Equal(orig, clone))

	clone["metadata"].(map[string]any)["labels"].(map[string]any)["color"] = "blue"
	clone["spec"].(map[string]any)["containers"].([]any)[0].(map[string]any)["name"] = "changed"

	assert.NotContains(t, orig["metadata"].(map[string]any)["labels"], "color")
	assert.Equal(t, "c", orig["spec"].(map[string]any)["containers"].([]any)[0].(map[string]any)["name"])
	assert.Nil(t, CloneObject(nil))
}

func TestAsInt64(t *testing.T) {
	n, ok := AsInt64(int64(4))
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	n, ok = AsInt64(4.0)
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = AsInt64(4.5)
	assert.False(t, ok)

	_, ok = AsInt64("4")
	assert.False(t, ok)
}

func TestMarshalSortsKeys(t *testing.T) {
	a := mustParse(t, `{"b":1,"a":{"y":2,"x":1}}`)
	b := mustParse(t, `{"a":{"x":1,"y":2},"b":1.0}`)

	sa, err := Marshal(a)
	require.NoError(t, err)
	sb, err := Marshal(b)
	require.NoError(t, err)

	assert.Equal(t, `{"a":{"x":1,"y":2},"b":1}`, sa)
	assert.Equal(t, sa, sb)

	back, err := UnmarshalObject(sa)
	require.NoError(t, err)
	assert.True(t, Equal(a, back))
}

func TestMarshalKeepsLargeIntegers(t *testing.T) {
	tree := map[string]any{"spec": map[string]any{"activeDeadlineSeconds": int64(9007199254740993)}}

	s, err := Marshal(tree)
	require.NoError(t, err)
	assert.Equal(t, `{"spec":{"activeDeadlineSeconds":9007199254740993}}`, s)

	back, err := UnmarshalObject(s)
	require.NoError(t, err)
	assert.True(t, Equal(tree, back))
}

func TestUnmarshalObjectRejectsNonObjects(t *testing.T) {
	_, err := UnmarshalObject(`[1,2]`)
	assert.Error(t, err)

	_, err = UnmarshalObject(`{not json`)
	assert.Error(t, err)
}

func TestRevision(t *testing.T) {
	r1, err := Revision(mustParse(t, `{"a":1,"b":2}`))
	require.NoError(t, err)
	r2, err := Revision(mustParse(t, `{"b":2,"a":1}`))
	require.NoError(t, err)
	r3, err := Revision(mustParse(t, `{"a":1,"b":3}`))
	require.NoError(t, err)

	assert.Len(t, r1, revisionLength)
	assert.Equal(t, r1, r2)
	assert.NotEqual(t, r1, r3)
}
