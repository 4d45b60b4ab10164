package operation

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/util"
)

type getIdentity struct {
	Identity   string `param:"identity"`
	Descriptor string `param:"descriptor"`
}

func (p *getIdentity) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Identity, validation.When(trimmed(p.Descriptor) == "", validation.Required)),
	)
}

type identityByDescriptor struct {
	Descriptor string `param:"descriptor"`
}

func (p *identityByDescriptor) Validate() error {
	return validation.ValidateStruct(p, validation.Field(&p.Descriptor, validation.Required))
}

type searchIdentities struct {
	LimitParams `param:",squash"`
	Query       string `param:"query"`
}

func (p *searchIdentities) SetDefaults() { p.Limit = constants.DefaultLimit }

func (p *searchIdentities) Validate() error {
	return validation.ValidateStruct(p, p.LimitParams.rules(), validation.Field(&p.Query, validation.Required))
}

func registerIdentity() {
	define(Identity, "get", "Get an identity by display name or descriptor", func(ctx context.Context, env Env, p *getIdentity) (Result, error) {
		req := resolve.Request{Kind: resolve.Identity, Name: p.Identity}
		if d := trimmed(p.Descriptor); d != "" {
			req = resolve.Request{Kind: resolve.Identity, Name: d, ByDescriptor: true}
		}
		id, err := env.Resolver.Resolve(ctx, req)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, "/_apis/identities/"+seg(id))
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Identity)

	define(Identity, "getByDescriptor", "Get the first identity matching a descriptor", func(ctx context.Context, env Env, p *identityByDescriptor) (Result, error) {
		res, err := env.get(ctx, "/_apis/identities?descriptors="+util.EscapeComponent(p.Descriptor))
		if err != nil {
			return nil, err
		}
		first := res.Get("value.0")
		if !first.Exists() {
			return nil, &resolve.NotFoundError{Kind: resolve.Identity, Name: p.Descriptor}
		}
		return Result{envelope.ToObject(first)}, nil
	})

	define(Identity, "search", "Search identities by name", func(ctx context.Context, env Env, p *searchIdentities) (Result, error) {
		res, err := env.get(ctx, "/_apis/identities?searchFilter=General&filterValue="+util.EscapeComponent(p.Query))
		if err != nil {
			return nil, err
		}
		return envelope.Truncate(env.values(envelope.Identity, res), p.Limit), nil
	})
}
