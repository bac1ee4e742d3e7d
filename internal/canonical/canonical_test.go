package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeysAndDropsWhitespace(t *testing.T) {
	got, err := Marshal(map[string]any{"b": 1, "a": []any{true, nil, "x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null,"x"],"b":1}`, string(got))
}

func TestMarshal_StructTags(t *testing.T) {
	type row struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Skip  string `json:"-"`
	}
	got, err := Marshal(row{Name: "w", Count: 3, Skip: "no"})
	require.NoError(t, err)
	assert.Equal(t, `{"count":3,"name":"w"}`, string(got))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort before U+FB01
	// in UTF-16 but after it in UTF-8.
	got, err := Marshal(map[string]any{"\ufb01": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\ufb01\":1}", string(got))
}

func TestMarshal_Strings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"quote and backslash", `"\`, `"\"\\"`},
		{"control characters", "\n\t\x01", `"\n\t\u0001"`},
		{"line separators stay literal", "\u2028\u2029", "\"\u2028\u2029\""},
		{"nfc normalization", "e\u0301", "\"\u00e9\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshal_Numbers(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{42, "42"},
		{int64(-7), "-7"},
		{1.5, "1.5"},
		{2.0, "2"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		got, err := Marshal(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got))
	}
}

func TestCanonicalize_RejectsTrailingData(t *testing.T) {
	_, err := Canonicalize([]byte(`{} {}`))
	assert.Error(t, err)

	_, err = Canonicalize([]byte(`{`))
	assert.Error(t, err)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	first, err := Canonicalize([]byte(`{ "z": {"y": 1, "x": [ 2, 3 ] }, "a": "s" }`))
	require.NoError(t, err)
	second, err := Canonicalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestHash_DomainSeparated(t *testing.T) {
	data := []byte(`{"a":1}`)

	h1 := Hash(DomainResult, data)
	h2 := Hash(DomainSnapshot, data)

	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, Hash(DomainResult, data))
}

func TestHashValue_KeyOrderIndependent(t *testing.T) {
	h1, err := HashValue(DomainResult, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	h2, err := HashValue(DomainResult, map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	_, err = HashValue(DomainResult, make(chan int))
	assert.Error(t, err)
}
