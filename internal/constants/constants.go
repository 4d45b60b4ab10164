package constants

import (
	"net/http"
	"time"
)

// Remote API constants
const (
	// PipelinesAPIVersion is required by the pipelines endpoints, which are still preview on 2020 servers.
	PipelinesAPIVersion = "6.0-preview.1"
	// BuildAPIVersion is used by the build endpoints backing cancelRun and getLogs.
	BuildAPIVersion = "6.0"
	// CommentsAPIVersion is required by the work item comments endpoints.
	CommentsAPIVersion = "6.0-preview.3"

	// BranchRefPrefix is prepended to branch names to form full ref names.
	BranchRefPrefix = "refs/heads/"
	// ZeroObjectID is the old object id used when creating a new ref.
	ZeroObjectID = "0000000000000000000000000000000000000000"

	// DefaultLimit caps list results when the caller does not supply a limit.
	DefaultLimit = 25
	// DefaultRecursionLevel is used by wiki getAllPages.
	DefaultRecursionLevel = "OneLevel"
)

// Client defaults
const (
	DefaultRequestTimeout = 30 * time.Second
)

// Database Constants
const (
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	DefaultPostgresMaxConnections = 5
	DefaultPostgresMaxIdleConns   = 2
	DefaultSQLiteMaxConnections   = 1 // SQLite allows only one writer
	DefaultSQLiteMaxIdleConns     = 1

	DefaultRunsTable     = "adorun_runs"
	DefaultRunItemsTable = "adorun_run_items"

	RunsSuffix     = "_runs"
	RunItemsSuffix = "_run_items"

	DefaultStoreFileName = "adorun.db"
)

// Time and Duration Constants
const (
	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
	DefaultSQLiteLifetime  = 10 * time.Minute
	DefaultSQLiteIdleTime  = 5 * time.Minute
)

// Wait Configuration Constants
const (
	DefaultWaitTimeout  = 60 * time.Second
	DefaultWaitInterval = 2 * time.Second
	DefaultWaitStatus   = http.StatusOK
	// WaitProbePath is a cheap authenticated endpoint present on every server.
	WaitProbePath = "/_apis/connectionData"
)
