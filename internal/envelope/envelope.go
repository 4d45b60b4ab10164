package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformed is returned when a response body is not valid JSON.
var ErrMalformed = errors.New("malformed JSON response")

// Envelope is one decoded response body. It may be a bare object or an object
// carrying a `value` array.
type Envelope struct {
	res gjson.Result
}

// Parse decodes body. An empty body yields an empty object.
func Parse(body []byte) (Envelope, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Envelope{res: gjson.Parse("{}")}, nil
	}
	if !gjson.ValidBytes(body) {
		return Envelope{}, ErrMalformed
	}
	return Envelope{res: gjson.ParseBytes(body)}, nil
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(s string) Envelope {
	e, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return e
}

// Of builds an envelope from an already decoded value.
func Of(v any) Envelope {
	b, err := json.Marshal(v)
	if err != nil {
		return Envelope{res: gjson.Parse("{}")}
	}
	return Envelope{res: gjson.ParseBytes(b)}
}

// Result exposes the underlying gjson result.
func (e Envelope) Result() gjson.Result { return e.res }

// Raw returns the JSON text of the envelope.
func (e Envelope) Raw() string {
	if e.res.Raw == "" {
		return "{}"
	}
	return e.res.Raw
}

// Get evaluates a gjson path against the envelope.
func (e Envelope) Get(path string) gjson.Result { return e.res.Get(path) }

// Value returns the `value` field and whether it is present.
func (e Envelope) Value() (gjson.Result, bool) {
	v := e.res.Get("value")
	return v, v.Exists()
}

// Object converts the envelope into an output object.
func (e Envelope) Object() map[string]any { return ToObject(e.res) }

// ToObject turns a JSON value into an output object. Non-object values are
// wrapped as {"value": v}. Numbers are kept as json.Number so large ids
// survive unchanged.
func ToObject(r gjson.Result) map[string]any {
	if !r.Exists() {
		return map[string]any{}
	}
	v, err := Decode(r.Raw)
	if err != nil {
		v = r.Value()
	}
	if m, ok := v.(map[string]any); ok && r.IsObject() {
		return m
	}
	return map[string]any{"value": v}
}

// Decode parses raw JSON keeping numbers as json.Number.
func Decode(raw string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Objects maps ToObject over a list.
func Objects(list []gjson.Result) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, r := range list {
		out = append(out, ToObject(r))
	}
	return out
}
