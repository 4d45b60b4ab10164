package operation

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/util"
	"github.com/tidwall/gjson"
)

// RepoParams names a repository that is resolved to its id.
type RepoParams struct {
	ProjectParams `param:",squash"`
	Repository    string `param:"repository"`
}

func (p *RepoParams) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.repoRule())
}

func (p *RepoParams) repoRule() *validation.FieldRules {
	return validation.Field(&p.Repository, validation.Required)
}

// repoBase resolves the repository and returns its API path.
func (p *RepoParams) repoBase(ctx context.Context, env Env) (string, error) {
	id, err := env.resolve(ctx, resolve.Repository, p.Project, p.Repository)
	if err != nil {
		return "", err
	}
	return p.base() + "/_apis/git/repositories/" + seg(id), nil
}

type createRepository struct {
	ProjectParams `param:",squash"`
	Name          string `param:"name"`
}

func (p *createRepository) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), validation.Field(&p.Name, validation.Required))
}

type allRepositories struct {
	ProjectParams `param:",squash"`
	LimitParams   `param:",squash"`
}

func (p *allRepositories) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.LimitParams.rules())
}

type pullRequestByID struct {
	RepoParams    `param:",squash"`
	PullRequestID string `param:"pullRequestId"`
}

func (p *pullRequestByID) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.repoRule(),
		validation.Field(&p.PullRequestID, validation.Required))
}

type createPullRequest struct {
	RepoParams       `param:",squash"`
	Title            string         `param:"title"`
	SourceBranch     string         `param:"sourceBranch"`
	TargetBranch     string         `param:"targetBranch"`
	Description      string         `param:"description"`
	Reviewers        string         `param:"reviewers"`
	AutoComplete     *bool          `param:"autoComplete"`
	AdditionalFields map[string]any `param:"additionalFields"`
}

func (p *createPullRequest) SetDefaults() { p.TargetBranch = "main" }

func (p *createPullRequest) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.repoRule(),
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.SourceBranch, validation.Required),
		validation.Field(&p.TargetBranch, validation.Required),
	)
}

// body merges the optional fields under the title and ref fields, which always win.
func (p *createPullRequest) body() map[string]any {
	body := map[string]any{}
	for k, v := range p.AdditionalFields {
		body[k] = v
	}
	if p.Description != "" {
		body["description"] = p.Description
	}
	if p.Reviewers != "" {
		body["reviewers"] = p.Reviewers
	}
	if p.AutoComplete != nil {
		body["autoComplete"] = *p.AutoComplete
	}
	if s, ok := body["reviewers"].(string); ok {
		body["reviewers"] = reviewerRefs(s)
	}
	body["title"] = p.Title
	body["sourceRefName"] = branchRef(p.SourceBranch)
	body["targetRefName"] = branchRef(p.TargetBranch)
	return body
}

func reviewerRefs(csv string) []map[string]any {
	ids := util.SplitList(csv)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]any{"id": id})
	}
	return out
}

func branchRef(name string) string { return constants.BranchRefPrefix + name }

type commitsParams struct {
	RepoParams  `param:",squash"`
	LimitParams `param:",squash"`
	Branch      string `param:"branch"`
}

func (p *commitsParams) SetDefaults() { p.Limit = constants.DefaultLimit }

func (p *commitsParams) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.repoRule(), p.LimitParams.rules())
}

type commitByID struct {
	RepoParams `param:",squash"`
	CommitID   string `param:"commitId"`
}

func (p *commitByID) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.repoRule(),
		validation.Field(&p.CommitID, validation.Required))
}

type createBranch struct {
	RepoParams   `param:",squash"`
	BranchName   string `param:"branchName"`
	SourceBranch string `param:"sourceBranch"`
}

func (p *createBranch) SetDefaults() { p.SourceBranch = "main" }

func (p *createBranch) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.repoRule(),
		validation.Field(&p.BranchName, validation.Required),
		validation.Field(&p.SourceBranch, validation.Required),
	)
}

func registerGit() {
	define(Git, "getRepository", "Get a repository by name", func(ctx context.Context, env Env, p *RepoParams) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, path)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Repository)

	define(Git, "createRepository", "Create a repository", func(ctx context.Context, env Env, p *createRepository) (Result, error) {
		res, err := env.call(ctx, http.MethodPost, p.base()+"/_apis/git/repositories", map[string]any{"name": p.Name}, nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(Git, "getAllRepositories", "List repositories", func(ctx context.Context, env Env, p *allRepositories) (Result, error) {
		res, err := env.get(ctx, p.base()+"/_apis/git/repositories")
		if err != nil {
			return nil, err
		}
		return envelope.Truncate(env.values(envelope.Git, res), p.Limit), nil
	})

	define(Git, "getPullRequest", "Get a pull request", func(ctx context.Context, env Env, p *pullRequestByID) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, path+"/pullrequests/"+seg(p.PullRequestID))
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Repository)

	define(Git, "createPullRequest", "Create a pull request", func(ctx context.Context, env Env, p *createPullRequest) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.call(ctx, http.MethodPost, path+"/pullrequests", p.body(), nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Repository)

	define(Git, "getBranches", "List branches", func(ctx context.Context, env Env, p *RepoParams) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, path+"/refs?filter=heads/")
		if err != nil {
			return nil, err
		}
		out := Result{}
		res.Get("value").ForEach(func(_, ref gjson.Result) bool {
			out = append(out, map[string]any{
				"name":     strings.TrimPrefix(ref.Get("name").String(), constants.BranchRefPrefix),
				"objectId": ref.Get("objectId").Value(),
			})
			return true
		})
		return out, nil
	}, resolve.Repository)

	define(Git, "getCommits", "List commits, optionally on one branch", func(ctx context.Context, env Env, p *commitsParams) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		endpoint := path + "/commits"
		if b := trimmed(p.Branch); b != "" {
			endpoint += "?searchCriteria.itemVersion.version=" + util.EscapeComponent(b)
		}
		res, err := env.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		return envelope.Truncate(list(res, "value"), p.Limit), nil
	}, resolve.Repository)

	define(Git, "getCommit", "Get a commit", func(ctx context.Context, env Env, p *commitByID) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, path+"/commits/"+seg(p.CommitID))
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Repository)

	define(Git, "createBranch", "Create a branch from the head of another", func(ctx context.Context, env Env, p *createBranch) (Result, error) {
		path, err := p.repoBase(ctx, env)
		if err != nil {
			return nil, err
		}
		refs, err := env.get(ctx, path+"/refs?filter=heads/"+util.EscapeComponent(p.SourceBranch))
		if err != nil {
			return nil, err
		}
		var objectID string
		want := branchRef(p.SourceBranch)
		refs.Get("value").ForEach(func(_, ref gjson.Result) bool {
			if ref.Get("name").String() == want {
				objectID = ref.Get("objectId").String()
				return false
			}
			return true
		})
		if objectID == "" {
			return nil, fmt.Errorf("source branch %q: %w", p.SourceBranch, &resolve.NotFoundError{Kind: "branch", Name: p.SourceBranch})
		}
		body := []map[string]any{{
			"name":        branchRef(p.BranchName),
			"oldObjectId": constants.ZeroObjectID,
			"newObjectId": objectID,
		}}
		res, err := env.call(ctx, http.MethodPost, path+"/refs", body, nil)
		if err != nil {
			return nil, err
		}
		return list(res, "value"), nil
	}, resolve.Repository)
}
