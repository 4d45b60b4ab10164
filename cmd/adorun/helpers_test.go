package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// setViper sets global viper keys for the duration of the test.
func setViper(t *testing.T, kv map[string]any) {
	t.Helper()
	v := viper.GetViper()
	for k, val := range kv {
		v.Set(k, val)
	}
	t.Cleanup(func() {
		for k := range kv {
			v.Set(k, nil)
		}
	})
}
