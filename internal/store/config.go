package store

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/store/postgresql"
	"github.com/loykin/adorun/internal/store/sqlite"
	"github.com/loykin/adorun/internal/util"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config selects the journal backend. An empty Type disables the journal.
type Config struct {
	Type        string            `mapstructure:"type" yaml:"type"`
	SQLite      sqlite.Config     `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres    postgresql.Config `mapstructure:"postgres" yaml:"postgres"`
	TablePrefix string            `mapstructure:"table_prefix" yaml:"table_prefix"`
}

// Enabled reports whether a backend was configured.
func (c Config) Enabled() bool {
	_, ok := util.TrimEmptyCheck(c.Type)
	return ok
}

// Driver normalizes the configured type.
func (c Config) Driver() string {
	switch util.TrimAndLower(c.Type) {
	case "sqlite", "sqlite3":
		return TypeSQLite
	case "postgres", "postgresql", "pg":
		return TypePostgres
	}
	return util.TrimAndLower(c.Type)
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required,
			validation.By(func(any) error {
				if d := c.Driver(); d != TypeSQLite && d != TypePostgres {
					return fmt.Errorf("unsupported store type %q", c.Type)
				}
				return nil
			})),
		validation.Field(&c.TablePrefix, validation.Match(identifier).Error("must be a SQL identifier")),
	)
}

// TableNames holds the journal table names.
type TableNames struct {
	Runs     string
	RunItems string
}

// Tables derives the table names from the prefix. An empty prefix uses the
// default names.
func (c Config) Tables() TableNames {
	prefix, ok := util.TrimEmptyCheck(c.TablePrefix)
	if !ok {
		return TableNames{Runs: constants.DefaultRunsTable, RunItems: constants.DefaultRunItemsTable}
	}
	return TableNames{Runs: prefix + constants.RunsSuffix, RunItems: prefix + constants.RunItemsSuffix}
}
