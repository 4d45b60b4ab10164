package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Method acquires the value of the Authorization header sent with every request.
type Method interface {
	Acquire(ctx context.Context) (value string, err error)
}

// Factory builds a Method instance from a loosely-typed spec map.
// Decoding into a concrete config struct is the typical responsibility of a Factory.
type Factory func(spec map[string]interface{}) (Method, error)

var (
	mu        sync.RWMutex
	providers = map[string]Factory{}
)

func normalizeKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register registers an auth provider factory under a type key (e.g., "oauth2", "basic").
// The key is normalized to lower-case.
func Register(typ string, f Factory) {
	key := normalizeKey(typ)
	if key == "" || f == nil {
		return
	}
	mu.Lock()
	providers[key] = f
	mu.Unlock()
}

// New builds the Method registered under typ.
func New(typ string, spec map[string]interface{}) (Method, error) {
	mu.RLock()
	f, ok := providers[normalizeKey(typ)]
	mu.RUnlock()
	if !ok {
		return nil, errors.New("auth: unsupported provider type: " + typ)
	}
	return f(spec)
}

func decode(spec map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(spec)
}

// Once wraps m so that the header value is acquired a single time and reused
// for the rest of the run. A failed acquisition is not cached.
func Once(m Method) Method {
	if m == nil {
		return nil
	}
	return &onceMethod{m: m}
}

type onceMethod struct {
	mu  sync.Mutex
	m   Method
	val string
	ok  bool
}

func (o *onceMethod) Acquire(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ok {
		return o.val, nil
	}
	v, err := o.m.Acquire(ctx)
	if err != nil {
		return "", err
	}
	o.val, o.ok = v, true
	return v, nil
}

func init() {
	Register("pat", func(spec map[string]interface{}) (Method, error) {
		var c PATConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("basic", func(spec map[string]interface{}) (Method, error) {
		var c BasicConfig
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c, nil
	})
	Register("oauth2", func(spec map[string]interface{}) (Method, error) {
		var c OAuth2Config
		if err := decode(spec, &c); err != nil {
			return nil, err
		}
		return c.method()
	})
}
