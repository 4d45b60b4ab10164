package operation

import (
	"context"
	"net/http"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/common"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/params"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/transport"
	"github.com/loykin/adorun/internal/util"
)

// Resource is the top-level selector of an operation.
type Resource string

const (
	Board    Resource = "board"
	Git      Resource = "git"
	Pipeline Resource = "pipeline"
	Wiki     Resource = "wiki"
	WorkItem Resource = "workItem"
	Identity Resource = "identity"
)

// Key identifies one variant of the closed operation set.
type Key struct {
	Resource  Resource
	Operation string
}

func (k Key) String() string { return string(k.Resource) + "." + k.Operation }

// Params is the typed parameter struct of one variant.
type Params interface {
	Validate() error
}

// Result is the list of output objects produced for one item.
type Result []map[string]any

// Env carries everything a variant needs to execute one item.
type Env struct {
	Transport  transport.Requester
	Resolver   *resolve.Resolver
	Normalizer envelope.Normalizer
	Logger     *common.Logger
}

func (e Env) call(ctx context.Context, method, endpoint string, body any, headers map[string]string) (envelope.Envelope, error) {
	return e.Transport.Request(ctx, method, endpoint, body, headers)
}

func (e Env) get(ctx context.Context, endpoint string) (envelope.Envelope, error) {
	return e.call(ctx, http.MethodGet, endpoint, nil, nil)
}

func (e Env) resolve(ctx context.Context, kind resolve.Kind, project, name string) (string, error) {
	return e.Resolver.Resolve(ctx, resolve.Request{Kind: kind, Project: project, Name: name})
}

func (e Env) values(f envelope.Family, env envelope.Envelope) Result {
	return envelope.Objects(e.Normalizer.Values(f, env))
}

// Spec is one registered variant.
type Spec struct {
	Key     Key
	Summary string
	// Lookups lists the name resolutions the variant may perform.
	Lookups []resolve.Kind

	newParams func() Params
	run       func(ctx context.Context, env Env, p Params) (Result, error)
}

// Decode turns a parameter bag into the validated typed parameters of s.
func (s *Spec) Decode(bag map[string]any) (Params, error) {
	p := s.newParams()
	if err := params.Decode(bag, p); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if err := asValidationError(p.Validate()); err != nil {
		return nil, err
	}
	return p, nil
}

// Execute decodes bag and runs the variant for one item.
func (s *Spec) Execute(ctx context.Context, env Env, bag map[string]any) (Result, error) {
	p, err := s.Decode(bag)
	if err != nil {
		return nil, err
	}
	if env.Logger == nil {
		env.Logger = common.GetLogger()
	}
	if env.Resolver == nil {
		env.Resolver = resolve.New(env.Transport, resolve.Options{Logger: env.Logger})
	}
	return s.run(ctx, env, p)
}

var registry = map[Key]*Spec{}

// define registers a variant whose parameters are decoded into *P.
func define[P any, PP interface {
	*P
	Params
}](r Resource, op, summary string, run func(context.Context, Env, PP) (Result, error), lookups ...resolve.Kind) {
	k := Key{Resource: r, Operation: op}
	if _, dup := registry[k]; dup {
		panic("operation: duplicate registration of " + k.String())
	}
	registry[k] = &Spec{
		Key:       k,
		Summary:   summary,
		Lookups:   lookups,
		newParams: func() Params { return PP(new(P)) },
		run: func(ctx context.Context, env Env, p Params) (Result, error) {
			return run(ctx, env, p.(PP))
		},
	}
}

// Lookup returns the variant registered for r and op.
func Lookup(r Resource, op string) (*Spec, error) {
	if s, ok := registry[Key{Resource: r, Operation: op}]; ok {
		return s, nil
	}
	if _, ok := declared[r]; !ok {
		return nil, invalid("resource", "unknown resource %q", r)
	}
	return nil, invalid("operation", "unknown operation %q for resource %s", op, r)
}

// All returns every registered variant ordered by resource then operation.
func All() []*Spec {
	out := make([]*Spec, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Key.Resource != out[j].Key.Resource {
			return out[i].Key.Resource < out[j].Key.Resource
		}
		return out[i].Key.Operation < out[j].Key.Operation
	})
	return out
}

// declared is the closed operation set per resource.
var declared = map[Resource][]string{
	Board:    {"get", "getAll", "getColumns"},
	Git:      {"getRepository", "createRepository", "getAllRepositories", "getPullRequest", "createPullRequest", "getBranches", "getCommits", "getCommit", "createBranch"},
	Pipeline: {"run", "getRun", "getAllPipelines", "getAllRuns", "getArtifacts", "cancelRun", "getLogs"},
	Wiki:     {"getPage", "createPage", "updatePage", "deletePage", "getAllPages", "getPageContent", "getPageMetadata"},
	WorkItem: {"get", "create", "update", "delete", "query", "getAll", "addComment", "getComments", "addAttachment"},
	Identity: {"get", "getByDescriptor", "search"},
}

func init() {
	validation.ErrorTag = "param"
	registerBoard()
	registerGit()
	registerPipeline()
	registerWiki()
	registerWorkItem()
	registerIdentity()
}

// ProjectParams is embedded by every project-scoped variant.
type ProjectParams struct {
	Project string `param:"project"`
}

func (p *ProjectParams) rules() *validation.FieldRules {
	return validation.Field(&p.Project, validation.Required)
}

func (p *ProjectParams) base() string { return "/" + seg(p.Project) }

// LimitParams is embedded by variants that truncate list results.
type LimitParams struct {
	Limit int `param:"limit"`
}

func (l *LimitParams) rules() *validation.FieldRules {
	return validation.Field(&l.Limit, validation.Min(0))
}

// list reads a JSON array at path; a missing path yields an empty result.
func list(env envelope.Envelope, path string) Result {
	v := env.Get(path)
	if !v.IsArray() {
		return Result{}
	}
	return envelope.Objects(v.Array())
}

func single(env envelope.Envelope) Result { return Result{env.Object()} }

func trimmed(s string) string { return strings.TrimSpace(s) }

// seg escapes one user supplied path or query component.
func seg(s string) string { return util.EscapeComponent(s) }
