package params

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Field is one work item field assignment.
type Field struct {
	Name  string `mapstructure:"name"`
	Value any    `mapstructure:"value"`
}

// Fields keeps the order in which fields were supplied.
type Fields []Field

var fieldsType = reflect.TypeOf(Fields(nil))

// ParseFields accepts an ordered list of {name, value} entries, a JSON object
// string (document order kept) or a map (keys sorted).
func ParseFields(v any) (Fields, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Fields:
		return val, nil
	case []Field:
		return Fields(val), nil
	case string:
		return parseFieldsJSON(val)
	case []any:
		out := make(Fields, 0, len(val))
		for i, e := range val {
			f, err := fieldFromEntry(e)
			if err != nil {
				return nil, fmt.Errorf("fields[%d]: %w", i, err)
			}
			out = append(out, f)
		}
		return out, nil
	case []map[string]any:
		out := make(Fields, 0, len(val))
		for i, e := range val {
			f, err := fieldFromEntry(e)
			if err != nil {
				return nil, fmt.Errorf("fields[%d]: %w", i, err)
			}
			out = append(out, f)
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(Fields, 0, len(keys))
		for _, k := range keys {
			out = append(out, Field{Name: k, Value: val[k]})
		}
		return out, nil
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return ParseFields(m)
	default:
		return nil, fmt.Errorf("unsupported fields type %T", v)
	}
}

func parseFieldsJSON(s string) (Fields, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !gjson.Valid(s) {
		return nil, errors.New("fields is not valid JSON")
	}
	res := gjson.Parse(s)
	if res.IsArray() {
		return ParseFields(res.Value())
	}
	if !res.IsObject() {
		return nil, errors.New("fields must be a JSON object or list")
	}
	var out Fields
	res.ForEach(func(k, v gjson.Result) bool {
		out = append(out, Field{Name: k.String(), Value: v.Value()})
		return true
	})
	return out, nil
}

func fieldFromEntry(e any) (Field, error) {
	m, ok := e.(map[string]any)
	if !ok {
		return Field{}, fmt.Errorf("expected {name, value}, got %T", e)
	}
	name, _ := m["name"].(string)
	if strings.TrimSpace(name) == "" {
		return Field{}, errors.New("name is required")
	}
	return Field{Name: name, Value: m["value"]}, nil
}

// Map returns the fields as a map. Later duplicates win.
func (f Fields) Map() map[string]any {
	out := make(map[string]any, len(f))
	for _, e := range f {
		out[e.Name] = e.Value
	}
	return out
}
