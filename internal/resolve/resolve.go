package resolve

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/loykin/adorun/internal/common"
	"github.com/loykin/adorun/internal/transport"
	"github.com/loykin/adorun/internal/util"
	"github.com/tidwall/gjson"
)

// Kind is an entity addressed by opaque id that users refer to by name.
type Kind string

const (
	Repository Kind = "repository"
	Pipeline   Kind = "pipeline"
	Wiki       Kind = "wiki"
	Team       Kind = "team"
	Identity   Kind = "identity"
)

// Request asks for the id of the entity of Kind named Name within Project.
// Identity lookups ignore Project; with ByDescriptor set, Name holds a descriptor.
type Request struct {
	Kind         Kind
	Project      string
	Name         string
	ByDescriptor bool
}

// NotFoundError is returned when the listing is empty or nothing matches.
type NotFoundError struct {
	Kind Kind
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// identityNameFields are compared against the searched identity name.
var identityNameFields = []string{
	"providerDisplayName",
	"customDisplayName",
	"properties.Account.$value",
	"properties.Mail.$value",
}

type memoKey struct {
	kind         Kind
	project      string
	name         string
	byDescriptor bool
}

type memoEntry struct {
	id  string
	err error
}

// Resolver turns names into ids by listing the collection and matching
// case-insensitively. A Resolver belongs to one invocation.
type Resolver struct {
	t       transport.Requester
	memo    map[memoKey]memoEntry
	logger  *common.Logger
	lookups int
}

// Options configures a Resolver.
type Options struct {
	// Memoize caches results, failures included, for the lifetime of the Resolver.
	Memoize bool
	Logger  *common.Logger
}

// New creates a Resolver issuing lookups through t.
func New(t transport.Requester, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	r := &Resolver{t: t, logger: logger.WithComponent("resolve")}
	if opts.Memoize {
		r.memo = map[memoKey]memoEntry{}
	}
	return r
}

// Lookups reports how many listing calls were issued.
func (r *Resolver) Lookups() int { return r.lookups }

// Resolve returns the id of the requested entity.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	key := memoKey{kind: req.Kind, project: req.Project, name: strings.ToLower(req.Name), byDescriptor: req.ByDescriptor}
	if r.memo != nil {
		if e, ok := r.memo[key]; ok {
			r.logger.Debug("lookup served from memo", "kind", string(req.Kind), "name", req.Name)
			return e.id, e.err
		}
	}
	id, err := r.lookup(ctx, req)
	// a cancelled lookup says nothing about the entity
	if r.memo != nil && ctx.Err() == nil {
		r.memo[key] = memoEntry{id: id, err: err}
	}
	return id, err
}

func (r *Resolver) lookup(ctx context.Context, req Request) (string, error) {
	endpoint, match, err := plan(req)
	if err != nil {
		return "", err
	}
	r.lookups++
	env, err := r.t.Request(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", req.Kind, err)
	}
	notFound := &NotFoundError{Kind: req.Kind, Name: req.Name}
	list, ok := env.Value()
	if !ok || !list.IsArray() {
		return "", notFound
	}
	var id string
	list.ForEach(func(_, item gjson.Result) bool {
		if match(item) {
			id = item.Get("id").String()
			return false
		}
		return true
	})
	if id == "" {
		return "", notFound
	}
	r.logger.Debug("resolved name", "kind", string(req.Kind), "name", req.Name, "id", id)
	return id, nil
}

func plan(req Request) (string, func(gjson.Result) bool, error) {
	byName := func(item gjson.Result) bool {
		return util.SameName(item.Get("name").String(), req.Name)
	}
	project := util.EscapeComponent(req.Project)
	needProject := func() error {
		if strings.TrimSpace(req.Project) == "" {
			return fmt.Errorf("resolve %s %q: project is required", req.Kind, req.Name)
		}
		return nil
	}

	switch req.Kind {
	case Repository:
		return "/" + project + "/_apis/git/repositories", byName, needProject()
	case Pipeline:
		return "/" + project + "/_apis/pipelines", byName, needProject()
	case Wiki:
		return "/" + project + "/_apis/wiki/wikis", byName, needProject()
	case Team:
		return "/_apis/projects/" + project + "/teams", byName, needProject()
	case Identity:
		if req.ByDescriptor {
			return "/_apis/identities?descriptors=" + util.EscapeComponent(req.Name), func(item gjson.Result) bool {
				return util.SameName(item.Get("descriptor").String(), req.Name)
			}, nil
		}
		return "/_apis/identities?searchFilter=General&filterValue=" + util.EscapeComponent(req.Name), func(item gjson.Result) bool {
			for _, f := range identityNameFields {
				if v := item.Get(f); v.Exists() && util.SameName(v.String(), req.Name) {
					return true
				}
			}
			return false
		}, nil
	default:
		return "", nil, fmt.Errorf("resolve: unknown kind %q", req.Kind)
	}
}
