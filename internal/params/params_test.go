package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEnv(t *testing.T) {
	t.Setenv("ADORUN_TEST_WIKI", "Team Wiki")
	env, err := BuildEnv([]EnvVar{
		{Name: "project", Value: "Demo"},
		{Name: "wiki", Value: "fallback", ValueFromEnv: "ADORUN_TEST_WIKI"},
		{Name: "branch", Value: "main", ValueFromEnv: "ADORUN_TEST_UNSET_VAR"},
	})
	require.NoError(t, err)
	assert.Equal(t, Env{"project": "Demo", "wiki": "Team Wiki", "branch": "main"}, env)

	_, err = BuildEnv([]EnvVar{{Name: "x", ValueFromEnv: "ADORUN_TEST_UNSET_VAR"}})
	assert.Error(t, err)
	_, err = BuildEnv([]EnvVar{{Value: "v"}})
	assert.Error(t, err)
}

func TestTemplates_Render(t *testing.T) {
	tpl := Templates{
		"project":  "{{.env.project}}",
		"pagePath": "{{.item.path}}",
		"content":  "item {{.index}}: {{.item.body}}",
		"limit":    10,
		"branch":   `{{default "main" (get "branch")}}`,
		"title":    `{{get "meta.title"}}`,
		"fields": []any{
			map[string]any{"name": "System.Title", "value": "{{.item.body}}"},
		},
	}
	out, err := tpl.Render(Scope{
		Item:  map[string]any{"path": "/Home", "body": "hi", "meta": map[string]any{"title": "T"}},
		Env:   Env{"project": "Demo"},
		Index: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Demo", out["project"])
	assert.Equal(t, "/Home", out["pagePath"])
	assert.Equal(t, "item 2: hi", out["content"])
	assert.Equal(t, 10, out["limit"])
	assert.Equal(t, "main", out["branch"])
	assert.Equal(t, "T", out["title"])
	assert.Equal(t, []any{map[string]any{"name": "System.Title", "value": "hi"}}, out["fields"])
}

func TestTemplates_RenderMissingKey(t *testing.T) {
	_, err := Templates{"etag": "{{.item.etag}}"}.Render(Scope{Item: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etag")
}

func TestTemplates_NoTemplateUntouched(t *testing.T) {
	out, err := Templates{"query": "SELECT [System.Id] FROM WorkItems"}.Render(Scope{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT [System.Id] FROM WorkItems", out["query"])
}

func TestParseFields_Shapes(t *testing.T) {
	fromJSON, err := ParseFields(`{"B":"y","A":"x","C":3}`)
	require.NoError(t, err)
	assert.Equal(t, Fields{{"B", "y"}, {"A", "x"}, {"C", float64(3)}}, fromJSON)

	fromList, err := ParseFields([]any{
		map[string]any{"name": "Z", "value": "1"},
		map[string]any{"name": "A", "value": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, Fields{{"Z", "1"}, {"A", "2"}}, fromList)

	fromMap, err := ParseFields(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, Fields{{"a", 2}, {"b", 1}}, fromMap)

	empty, err := ParseFields("  ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseFields(`{"A":`)
	assert.Error(t, err)
	_, err = ParseFields(`"str"`)
	assert.Error(t, err)
	_, err = ParseFields([]any{map[string]any{"value": "no name"}})
	assert.Error(t, err)
	_, err = ParseFields(42)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	type target struct {
		Project   string   `param:"project"`
		Limit     int      `param:"limit"`
		Include   bool     `param:"includeContent"`
		Reviewers []string `param:"reviewers"`
		Fields    Fields   `param:"fields"`
	}
	var out target
	err := Decode(map[string]any{
		"project":        "Demo",
		"limit":          "5",
		"includeContent": "false",
		"reviewers":      "a,b",
		"fields":         `{"System.Title":"T","System.State":"New"}`,
		"unknown":        "ignored",
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Demo", out.Project)
	assert.Equal(t, 5, out.Limit)
	assert.False(t, out.Include)
	assert.Equal(t, []string{"a", "b"}, out.Reviewers)
	assert.Equal(t, Fields{{"System.Title", "T"}, {"System.State", "New"}}, out.Fields)
}

type withDefaults struct {
	Limit  int            `param:"limit"`
	Extras map[string]any `param:"additionalFields"`
}

func (w *withDefaults) SetDefaults() { w.Limit = 25 }

func TestDecode_DefaultsAndJSONObject(t *testing.T) {
	var out withDefaults
	require.NoError(t, Decode(map[string]any{"additionalFields": `{"description":"d"}`}, &out))
	assert.Equal(t, 25, out.Limit)
	assert.Equal(t, map[string]any{"description": "d"}, out.Extras)

	out = withDefaults{}
	require.NoError(t, Decode(map[string]any{"limit": 3}, &out))
	assert.Equal(t, 3, out.Limit)

	assert.Error(t, Decode(map[string]any{"additionalFields": `{"description":`}, &withDefaults{}))
}
