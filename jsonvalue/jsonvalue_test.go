package jsonvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_IntegerAcceptsIntegralFloatsAndYAMLInts(t *testing.T) {
	require.True(t, Is(float64(3), Integer))
	require.True(t, Is(7, Integer))
	require.True(t, Is(json.Number("12"), Integer))
	require.False(t, Is(3.5, Integer))
	require.True(t, Is(3.5, Number))
	require.False(t, Is("3", Number))
}

func TestEqual_NumbersCompareByValue(t *testing.T) {
	a := map[string]any{"n": float64(1), "arr": []any{"x", json.Number("2")}}
	b := map[string]any{"arr": []any{"x", 2}, "n": 1}
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, map[string]any{"n": 1}))
	require.False(t, Equal(nil, false))
	require.False(t, Equal("1", 1))
}

func TestClone_IsDeep(t *testing.T) {
	in := map[string]any{"a": []any{map[string]any{"b": 1}}}
	out := Clone(in).(map[string]any)
	out["a"].([]any)[0].(map[string]any)["b"] = 2
	require.Equal(t, 1, in["a"].([]any)[0].(map[string]any)["b"])
}

func TestNormalize_ConvertsAnyKeyedMaps(t *testing.T) {
	in := map[any]any{"a": []any{map[any]any{1: "x"}}}
	out, err := Normalize(in)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": []any{map[string]any{"1": "x"}}}, out)
}

func TestNormalize_RejectsCycles(t *testing.T) {
	m := map[string]any{"type": "object"}
	m["properties"] = map[string]any{"self": m}
	_, err := Normalize(m)
	require.ErrorIs(t, err, ErrCycle)

	shared := map[string]any{"type": "string"}
	_, err = Normalize(map[string]any{"a": shared, "b": shared})
	require.NoError(t, err)
}

func TestParseRelativePointer(t *testing.T) {
	cases := []struct {
		in   string
		want RelativePointer
		err  bool
	}{
		{in: "0", want: RelativePointer{}},
		{in: "1/max", want: RelativePointer{Up: 1, Tokens: []string{"max"}}},
		{in: "2#", want: RelativePointer{Up: 2, Key: true}},
		{in: "0/a~1b/c~0d", want: RelativePointer{Tokens: []string{"a/b", "c~d"}}},
		{in: "/limits/max", want: RelativePointer{Absolute: true, Tokens: []string{"limits", "max"}}},
		{in: "01/x", err: true},
		{in: "x", err: true},
		{in: "1x", err: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseRelativePointer(c.in)
			if c.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.want, got)
		})
	}
}

func TestGet(t *testing.T) {
	doc := map[string]any{"a": []any{map[string]any{"b/c": true}}}
	v, ok := Get(doc, []string{"a", "0", "b/c"})
	require.True(t, ok)
	require.Equal(t, true, v)
	_, ok = Get(doc, []string{"a", "1"})
	require.False(t, ok)
	require.Equal(t, "/a/0/b~1c", AppendToken(AppendIndex("/a", 0), "b/c"))
}
