package sqlite

import (
	"fmt"

	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/util"
)

const (
	busyTimeoutMS = 5000
)

type Config struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DSN returns the modernc connection string for the configured file. An empty
// path falls back to the default journal file name; ":memory:" is passed through.
func (c *Config) DSN() string {
	path := util.TrimWithDefault(c.Path, constants.DefaultStoreFileName)
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busyTimeoutMS)
}
