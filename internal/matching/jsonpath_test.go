package matching

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	return doc
}

func TestJSONPath_Match(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		expected  any
		body      string
		wantMatch bool
		wantValue any
	}{
		{
			name:      "simple string field match",
			path:      "$.status",
			expected:  "active",
			body:      `{"status": "active", "name": "test"}`,
			wantMatch: true,
			wantValue: "active",
		},
		{
			name:      "simple string field mismatch",
			path:      "$.status",
			expected:  "active",
			body:      `{"status": "inactive"}`,
			wantMatch: false,
			wantValue: "inactive",
		},
		{
			name:      "int expected against decoded float",
			path:      "$.count",
			expected:  42,
			body:      `{"count": 42}`,
			wantMatch: true,
			wantValue: float64(42),
		},
		{
			name:      "boolean field",
			path:      "$.enabled",
			expected:  false,
			body:      `{"enabled": false}`,
			wantMatch: true,
			wantValue: false,
		},
		{
			name:      "null field",
			path:      "$.deleted",
			expected:  nil,
			body:      `{"deleted": null}`,
			wantMatch: true,
			wantValue: nil,
		},
		{
			name:      "nested field",
			path:      "$.user.name",
			expected:  "bob",
			body:      `{"user": {"name": "bob"}}`,
			wantMatch: true,
			wantValue: "bob",
		},
		{
			name:      "wildcard any element",
			path:      "$.items[*].id",
			expected:  "b",
			body:      `{"items": [{"id": "a"}, {"id": "b"}]}`,
			wantMatch: true,
			wantValue: "b",
		},
		{
			name:      "missing field",
			path:      "$.missing",
			expected:  "value",
			body:      `{"status": "active"}`,
			wantMatch: false,
		},
		{
			name:      "exists true",
			path:      "$.token",
			expected:  Exists(true),
			body:      `{"token": "abc"}`,
			wantMatch: true,
			wantValue: "abc",
		},
		{
			name:      "exists false on missing",
			path:      "$.token",
			expected:  Exists(false),
			body:      `{}`,
			wantMatch: true,
		},
		{
			name:      "exists false on present",
			path:      "$.token",
			expected:  Exists(false),
			body:      `{"token": "abc"}`,
			wantMatch: false,
			wantValue: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompileJSONPath(tt.path)
			require.NoError(t, err)

			matched, value := p.Match(decode(t, tt.body), tt.expected)
			assert.Equal(t, tt.wantMatch, matched)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestCompileJSONPath_Invalid(t *testing.T) {
	_, err := CompileJSONPath("$[invalid")
	assert.Error(t, err)
}

func TestJSONPath_Get(t *testing.T) {
	p, err := CompileJSONPath("$.items[*]")
	require.NoError(t, err)
	assert.Len(t, p.Get(decode(t, `{"items": [1, 2, 3]}`)), 3)
	assert.Equal(t, "$.items[*]", p.String())
}

func TestExistenceCheck(t *testing.T) {
	exists, ok := ExistenceCheck(map[string]any{"exists": true})
	assert.True(t, ok)
	assert.True(t, exists)

	_, ok = ExistenceCheck(map[string]any{"exists": true, "other": 1})
	assert.False(t, ok)

	_, ok = ExistenceCheck(map[string]any{"exists": "yes"})
	assert.False(t, ok)

	_, ok = ExistenceCheck("exists")
	assert.False(t, ok)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(float64(3), 3))
	assert.True(t, ValuesEqual(float64(3), uint8(3)))
	assert.False(t, ValuesEqual(float64(3), "3"))
	assert.True(t, ValuesEqual(nil, nil))
	assert.False(t, ValuesEqual(nil, "x"))
	assert.True(t, ValuesEqual([]any{"a"}, []any{"a"}))
}

func TestValuesEqual_Nested(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"list of ints", []any{float64(1), float64(2)}, []any{1, 2}, true},
		{"typed slice", []any{float64(1), float64(2)}, []int{1, 2}, true},
		{"list length differs", []any{float64(1)}, []any{1, 2}, false},
		{"list value differs", []any{float64(1), float64(3)}, []any{1, 2}, false},
		{"object", map[string]any{"age": float64(3)}, map[string]any{"age": 3}, true},
		{"typed map", map[string]any{"age": float64(3)}, map[string]int{"age": 3}, true},
		{"object missing key", map[string]any{"age": float64(3)}, map[string]any{"years": 3}, false},
		{"object extra key", map[string]any{"age": float64(3), "id": "x"}, map[string]any{"age": 3}, false},
		{"deep", map[string]any{"ids": []any{float64(1)}, "user": map[string]any{"age": float64(3)}},
			map[string]any{"ids": []any{1}, "user": map[string]any{"age": 3}}, true},
		{"number against list", float64(1), []any{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValuesEqual(tt.actual, tt.expected))
		})
	}
}

func TestJSONPath_MatchNestedNumbers(t *testing.T) {
	doc := decode(t, `{"ids": [1, 2], "user": {"age": 3}}`)

	ids, err := CompileJSONPath("$.ids")
	require.NoError(t, err)
	matched, _ := ids.Match(doc, []any{1, 2})
	assert.True(t, matched)

	user, err := CompileJSONPath("$.user")
	require.NoError(t, err)
	matched, _ = user.Match(doc, map[string]any{"age": 3})
	assert.True(t, matched)
}
