package adorun

import (
	"context"
	"errors"
	"time"

	"github.com/loykin/adorun/internal/auth"
	"github.com/loykin/adorun/internal/common"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/dispatch"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/httpc"
	"github.com/loykin/adorun/internal/operation"
	"github.com/loykin/adorun/internal/params"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/store"
	"github.com/loykin/adorun/internal/transport"
)

// Re-export commonly used types for public API
type (
	Key      = operation.Key
	Resource = operation.Resource
	Item     = dispatch.Item
	Output   = dispatch.Output

	NotFoundError   = resolve.NotFoundError
	TransportError  = transport.TransportError
	ValidationError = operation.ValidationError
	ItemError       = dispatch.ItemError

	// Requester sends one request and decodes the JSON response.
	Requester = transport.Requester
	Policy    = envelope.Policy
	EnvVar    = params.EnvVar
	Env       = params.Env
	Logger    = common.Logger
)

const (
	ResourceBoard    = operation.Board
	ResourceGit      = operation.Git
	ResourcePipeline = operation.Pipeline
	ResourceWiki     = operation.Wiki
	ResourceWorkItem = operation.WorkItem
	ResourceIdentity = operation.Identity

	NormalizeUniform = envelope.Uniform
	NormalizeLegacy  = envelope.Legacy
)

// Credential identifies the server and the personal access token used by default.
type Credential struct {
	Server              string
	PersonalAccessToken string
}

// ClientOptions tunes the HTTP client. A zero Timeout means the 30s default.
type ClientOptions struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	MinTLSVersion      string
	MaxTLSVersion      string
}

// Options configures one Run.
type Options struct {
	Credential Credential
	// Auth replaces the personal access token when set.
	Auth   AuthMethod
	Client ClientOptions

	ContinueOnFail bool
	MemoizeLookups bool
	Normalize      Policy
	Logger         *Logger

	// Transport replaces the HTTP client built from Credential, Auth and Client.
	Transport Requester
}

// NewTransport builds the requester described by opts.
func NewTransport(opts Options) (Requester, error) {
	if opts.Transport != nil {
		return opts.Transport, nil
	}
	timeout := opts.Client.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	h := &httpc.Httpc{
		Timeout:   timeout,
		TlsConfig: httpc.TLSConfig(opts.Client.InsecureSkipVerify, opts.Client.MinTLSVersion, opts.Client.MaxTLSVersion),
	}
	if opts.Auth == nil {
		if opts.Credential.PersonalAccessToken == "" {
			return nil, errors.New("a personal access token or an auth provider is required")
		}
		common.RegisterSecret(opts.Credential.PersonalAccessToken)
	}
	method := opts.Auth
	if method == nil {
		method = auth.PATConfig{Token: opts.Credential.PersonalAccessToken}
	}
	return transport.New(transport.Options{
		Server: opts.Credential.Server,
		Auth:   method,
		HTTP:   h,
		Logger: opts.Logger,
	})
}

// Run executes key over items and returns the produced outputs in order.
func Run(ctx context.Context, opts Options, key Key, items []Item) ([]Output, error) {
	t, err := NewTransport(opts)
	if err != nil {
		return nil, err
	}
	d := dispatch.New(t, dispatch.Options{
		ContinueOnFail: opts.ContinueOnFail,
		Memoize:        opts.MemoizeLookups,
		Normalizer:     envelope.Normalizer{Policy: opts.Normalize},
		Logger:         opts.Logger,
	})
	return d.Run(ctx, key, items)
}

// ParseKey checks that resource/operation names a supported operation.
func ParseKey(resource, op string) (Key, error) {
	spec, err := operation.Lookup(Resource(resource), op)
	if err != nil {
		return Key{}, err
	}
	return spec.Key, nil
}

// OperationInfo describes one supported operation.
type OperationInfo struct {
	Key     Key
	Summary string
}

// Operations lists every supported operation sorted by resource then name.
func Operations() []OperationInfo {
	specs := operation.All()
	out := make([]OperationInfo, 0, len(specs))
	for _, s := range specs {
		out = append(out, OperationInfo{Key: s.Key, Summary: s.Summary})
	}
	return out
}

// ParseNormalize accepts "uniform" (or empty) and "legacy".
func ParseNormalize(s string) (Policy, error) { return envelope.ParsePolicy(s) }

// BuildEnv resolves configured variables, reading ValueFromEnv from the process environment.
func BuildEnv(vars []EnvVar) (Env, error) { return params.BuildEnv(vars) }

// RenderItems checks the parameter templates up front. Each item's bag is
// rendered when the item is processed, so a render failure is that item's
// failure and follows the continue-on-failure setting.
func RenderItems(templates map[string]any, env Env, inputs []map[string]any) ([]Item, error) {
	tpl := params.Templates(templates)
	if err := tpl.Check(); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(inputs))
	for i, in := range inputs {
		scope := params.Scope{Item: in, Env: env, Index: i}
		items = append(items, Item{Index: i, JSON: in, Render: func() (map[string]any, error) {
			return tpl.Render(scope)
		}})
	}
	return items, nil
}

// AuthMethod Plugin-style provider interface and registration
type AuthMethod = auth.Method

type AuthFactory = auth.Factory

// RegisterAuthProvider exposes custom auth provider registration for library users.
func RegisterAuthProvider(typ string, f AuthFactory) { auth.Register(typ, f) }

// NewAuth builds a registered provider from its spec. The header value is
// acquired on first use and reused afterwards.
func NewAuth(typ string, spec map[string]interface{}) (AuthMethod, error) {
	m, err := auth.New(typ, spec)
	if err != nil {
		return nil, err
	}
	return auth.Once(m), nil
}

type (
	Store       = store.Store
	StoreConfig = store.Config
	StoreRun    = store.Run
	StoreItem   = store.RunItem
)

// OpenStore opens the run-history journal and creates its tables.
func OpenStore(ctx context.Context, cfg StoreConfig) (*Store, error) { return store.Open(ctx, cfg) }

// JournalEntry turns one Run outcome into a journal record. runErr marks the
// run as aborted.
func JournalEntry(key Key, items int, out []Output, runErr error, started, finished time.Time) StoreRun {
	r := StoreRun{
		Resource:   string(key.Resource),
		Operation:  key.Operation,
		ItemCount:  items,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if runErr != nil {
		r.Aborted = true
		r.Error = runErr.Error()
		var ie *ItemError
		if errors.As(runErr, &ie) {
			r.Failed = 1
		}
	}
	for _, o := range out {
		if o.Failed {
			r.Failed++
		}
		r.Items = append(r.Items, StoreItem{Index: o.Index, Failed: o.Failed, Output: o.JSON})
	}
	return r
}
