package params

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// fieldsHook lets mapstructure decode every accepted fields shape into Fields.
func fieldsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != fieldsType {
		return data, nil
	}
	return ParseFields(data)
}

// jsonObjectHook decodes a JSON object string into a map target.
func jsonObjectHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Map {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if s == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	return m, nil
}

// Defaulter is implemented by parameter structs that carry default values.
type Defaulter interface {
	SetDefaults()
}

// Decode fills out from a parameter bag. Input is weakly typed so that
// rendered strings such as "25" or "true" reach int and bool fields.
func Decode(bag map[string]any, out any) error {
	if d, ok := out.(Defaulter); ok {
		d.SetDefaults()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "param",
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			fieldsHook,
			jsonObjectHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(bag)
}
