package operation

import (
	"context"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/util"
)

// WikiParams names a wiki that is resolved to its id.
type WikiParams struct {
	ProjectParams `param:",squash"`
	Wiki          string `param:"wiki"`
}

func (p *WikiParams) wikiRule() *validation.FieldRules {
	return validation.Field(&p.Wiki, validation.Required)
}

// pages resolves the wiki and returns the path of its pages collection.
func (p *WikiParams) pages(ctx context.Context, env Env) (string, error) {
	id, err := env.resolve(ctx, resolve.Wiki, p.Project, p.Wiki)
	if err != nil {
		return "", err
	}
	return p.base() + "/_apis/wiki/wikis/" + seg(id) + "/pages", nil
}

// PageParams addresses one page of a wiki by path.
type PageParams struct {
	WikiParams `param:",squash"`
	PagePath   string `param:"pagePath"`
}

func (p *PageParams) pageRule() *validation.FieldRules {
	return validation.Field(&p.PagePath, validation.Required)
}

func (p *PageParams) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.wikiRule(), p.pageRule())
}

func (p *PageParams) pageURL(ctx context.Context, env Env) (string, error) {
	pages, err := p.pages(ctx, env)
	if err != nil {
		return "", err
	}
	return pages + "?path=" + util.EscapeComponent(p.PagePath), nil
}

type getPage struct {
	PageParams     `param:",squash"`
	IncludeContent bool `param:"includeContent"`
}

func (p *getPage) SetDefaults() { p.IncludeContent = true }

// WritePage carries the content of a created or updated page.
type WritePage struct {
	PageParams `param:",squash"`
	Content    string `param:"content"`
}

// Content may be empty.
func (p *WritePage) Validate() error { return p.PageParams.Validate() }

type updatePage struct {
	WritePage `param:",squash"`
	ETag      string `param:"etag"`
}

func (p *updatePage) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.wikiRule(), p.pageRule(),
		validation.Field(&p.ETag, validation.Required),
	)
}

var recursionLevels = []any{"None", "OneLevel", "Full"}

type allPages struct {
	WikiParams     `param:",squash"`
	RecursionLevel string `param:"recursionLevel"`
}

func (p *allPages) SetDefaults() { p.RecursionLevel = constants.DefaultRecursionLevel }

func (p *allPages) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.wikiRule(),
		validation.Field(&p.RecursionLevel, validation.Required, validation.In(recursionLevels...)))
}

func registerWiki() {
	define(Wiki, "getPage", "Get a page", func(ctx context.Context, env Env, p *getPage) (Result, error) {
		url, err := p.pageURL(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, url+"&includeContent="+strconv.FormatBool(p.IncludeContent))
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Wiki)

	define(Wiki, "createPage", "Create a page", func(ctx context.Context, env Env, p *WritePage) (Result, error) {
		url, err := p.pageURL(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.call(ctx, http.MethodPut, url, map[string]any{"content": p.Content}, nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Wiki)

	define(Wiki, "updatePage", "Update a page guarded by its ETag", func(ctx context.Context, env Env, p *updatePage) (Result, error) {
		url, err := p.pageURL(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.call(ctx, http.MethodPut, url, map[string]any{"content": p.Content}, map[string]string{"If-Match": p.ETag})
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Wiki)

	define(Wiki, "deletePage", "Delete a page", func(ctx context.Context, env Env, p *PageParams) (Result, error) {
		url, err := p.pageURL(ctx, env)
		if err != nil {
			return nil, err
		}
		if _, err := env.call(ctx, http.MethodDelete, url, nil, nil); err != nil {
			return nil, err
		}
		return Result{{"success": true}}, nil
	}, resolve.Wiki)

	define(Wiki, "getAllPages", "List pages", func(ctx context.Context, env Env, p *allPages) (Result, error) {
		pages, err := p.pages(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, pages+"?recursionLevel="+p.RecursionLevel)
		if err != nil {
			return nil, err
		}
		return env.values(envelope.Wiki, res), nil
	}, resolve.Wiki)

	define(Wiki, "getPageContent", "Get the raw content of a page", func(ctx context.Context, env Env, p *PageParams) (Result, error) {
		url, err := p.pageURL(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, url+"&includeContent=true")
		if err != nil {
			return nil, err
		}
		path := res.Get("path").String()
		if path == "" {
			path = p.PagePath
		}
		return Result{{"path": path, "content": res.Get("content").String()}}, nil
	}, resolve.Wiki)

	define(Wiki, "getPageMetadata", "Get a page without its content", func(ctx context.Context, env Env, p *PageParams) (Result, error) {
		url, err := p.pageURL(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, url+"&includeContent=false")
		if err != nil {
			return nil, err
		}
		page := res.Object()
		delete(page, "content")
		return Result{page}, nil
	}, resolve.Wiki)
}
