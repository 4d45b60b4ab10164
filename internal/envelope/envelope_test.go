package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	e, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", e.Raw())
	assert.Empty(t, e.Object())

	_, err = Parse([]byte(`{"id":`))
	assert.ErrorIs(t, err, ErrMalformed)

	e, err = Parse([]byte(`{"id": 42, "name": "Board"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.Get("id").Int())
	assert.Equal(t, "Board", e.Object()["name"])
}

func TestValues_ValuePreservedInOrder(t *testing.T) {
	e := MustParse(`{"count":3,"value":[{"id":3},{"id":1},{"id":3}]}`)
	for _, p := range []Policy{Uniform, Legacy} {
		got := Normalizer{Policy: p}.Values(WorkItem, e)
		require.Len(t, got, 3)
		assert.Equal(t, int64(3), got[0].Get("id").Int())
		assert.Equal(t, int64(1), got[1].Get("id").Int())
		assert.Equal(t, int64(3), got[2].Get("id").Int())
	}
}

func TestValues_ValuelessEnvelope(t *testing.T) {
	e := MustParse(`{"id":"abc"}`)
	families := []Family{Board, Git, Wiki, WorkItem, Pipeline, Identity, Comment}

	for _, f := range families {
		got := Normalizer{Policy: Uniform}.Values(f, e)
		require.Len(t, got, 1, string(f))
		assert.Equal(t, "abc", got[0].Get("id").String())
	}

	legacy := Normalizer{Policy: Legacy}
	assert.Empty(t, legacy.Values(WorkItem, e))
	assert.Empty(t, legacy.Values(Pipeline, e))
	assert.Len(t, legacy.Values(Git, e), 1)
	assert.Len(t, legacy.Values(Wiki, e), 1)
}

func TestValues_EmptyValueArray(t *testing.T) {
	got := Normalizer{}.Values(Git, MustParse(`{"value":[]}`))
	assert.Empty(t, got)
}

func TestTruncate(t *testing.T) {
	list := []int{5, 4, 3, 2, 1}
	cases := []struct {
		n    int
		want []int
	}{
		{n: 0, want: list},
		{n: -1, want: list},
		{n: 1, want: []int{5}},
		{n: 3, want: []int{5, 4, 3}},
		{n: 5, want: list},
		{n: 10, want: list},
	}
	for _, c := range cases {
		got := Truncate(list, c.n)
		assert.Equal(t, c.want, got, "n=%d", c.n)
		if c.n > 0 {
			assert.Len(t, got, min(c.n, len(list)))
		}
	}
}

func TestToObject_WrapsScalars(t *testing.T) {
	e := MustParse(`{"value":["a", 2, {"k":"v"}]}`)
	objs := Objects(Normalizer{}.Values(Git, e))
	require.Len(t, objs, 3)
	assert.Equal(t, map[string]any{"value": "a"}, objs[0])
	assert.Equal(t, map[string]any{"value": json.Number("2")}, objs[1])
	assert.Equal(t, map[string]any{"k": "v"}, objs[2])
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Uniform, p)
	p, err = ParsePolicy("LEGACY")
	require.NoError(t, err)
	assert.Equal(t, Legacy, p)
	_, err = ParsePolicy("strict")
	assert.Error(t, err)
}

func TestObject_KeepsLargeIntegers(t *testing.T) {
	obj := MustParse(`{"id": 9007199254740993, "rev": 12345678901234567, "ratio": 0.25}`).Object()
	assert.Equal(t, json.Number("9007199254740993"), obj["id"])
	b, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9007199254740993,"rev":12345678901234567,"ratio":0.25}`, string(b))
	assert.Contains(t, string(b), `"rev":12345678901234567`)
}
