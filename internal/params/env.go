package params

import (
	"fmt"
	"os"
	"strings"
)

// EnvVar is one configured variable. ValueFromEnv names a process environment
// variable that takes precedence over Value when set.
type EnvVar struct {
	Name         string `yaml:"name" mapstructure:"name"`
	Value        string `yaml:"value" mapstructure:"value"`
	ValueFromEnv string `yaml:"valueFromEnv" mapstructure:"valueFromEnv"`
}

// Env holds the run-wide variables exposed to parameter templates as .env.
type Env map[string]string

// BuildEnv resolves vars in order; later entries override earlier ones.
func BuildEnv(vars []EnvVar) (Env, error) {
	out := Env{}
	for i, v := range vars {
		name := strings.TrimSpace(v.Name)
		if name == "" {
			return nil, fmt.Errorf("env[%d]: name is required", i)
		}
		val := v.Value
		if src := strings.TrimSpace(v.ValueFromEnv); src != "" {
			if s, ok := os.LookupEnv(src); ok {
				val = s
			} else if val == "" {
				return nil, fmt.Errorf("env %s: environment variable %s is not set", name, src)
			}
		}
		out[name] = val
	}
	return out, nil
}

// Lookup returns the value of key.
func (e Env) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e[key]
	return v, ok
}
