package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/tidwall/gjson"
)

// Templates is the configured parameter block. String values are Go templates
// rendered per item; other scalars pass through unchanged. Lists and maps are
// walked recursively.
type Templates map[string]any

// Scope is the data a template sees: .item, .env and .index.
type Scope struct {
	Item  map[string]any
	Env   Env
	Index int
}

func (s Scope) data() map[string]any {
	env := map[string]string{}
	for k, v := range s.Env {
		env[k] = v
	}
	item := s.Item
	if item == nil {
		item = map[string]any{}
	}
	return map[string]any{"item": item, "env": env, "index": s.Index}
}

// Render produces the flat parameter bag for one item.
func (t Templates) Render(s Scope) (map[string]any, error) {
	data := s.data()
	funcs := funcMap(item(s.Item))
	out := make(map[string]any, len(t))
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := renderValue(k, t[k], data, funcs)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func renderValue(name string, v any, data map[string]any, funcs template.FuncMap) (any, error) {
	switch val := v.(type) {
	case string:
		return renderString(name, val, data, funcs)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			r, err := renderValue(fmt.Sprintf("%s[%d]", name, i), e, data, funcs)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			r, err := renderValue(name+"."+k, e, data, funcs)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func renderString(name, s string, data map[string]any, funcs template.FuncMap) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	tpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(s)
	if err != nil {
		return "", fmt.Errorf("parameter %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("parameter %s: %w", name, err)
	}
	return buf.String(), nil
}

type item map[string]any

func (i item) json() string {
	b, err := json.Marshal(map[string]any(i))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// funcMap exposes helpers for optional and nested item fields:
//
//	{{get "fields.System\\.Title"}}   gjson path over the item, "" when missing
//	{{default "main" (get "branch")}} fallback for empty values
//	{{json .item.tags}}               JSON encoding of a value
func funcMap(it item) template.FuncMap {
	var raw string
	return template.FuncMap{
		"get": func(path string) string {
			if raw == "" {
				raw = it.json()
			}
			return gjson.Get(raw, path).String()
		},
		"default": func(def string, v any) string {
			if v == nil {
				return def
			}
			if s := fmt.Sprint(v); s != "" {
				return s
			}
			return def
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
}
