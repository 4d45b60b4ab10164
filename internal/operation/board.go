package operation

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/resolve"
)

// BoardParams addresses boards of a project, optionally through a team.
type BoardParams struct {
	ProjectParams `param:",squash"`
	BoardID       string `param:"boardId"`
	Team          string `param:"team"`
}

func (p *BoardParams) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules())
}

// boardBase is /{project} or /{project}/{teamId} when a team is named.
func (p *BoardParams) boardBase(ctx context.Context, env Env) (string, error) {
	if trimmed(p.Team) == "" {
		return p.base(), nil
	}
	teamID, err := env.resolve(ctx, resolve.Team, p.Project, p.Team)
	if err != nil {
		return "", err
	}
	return p.base() + "/" + seg(teamID), nil
}

type boardByID struct {
	BoardParams `param:",squash"`
}

func (p *boardByID) Validate() error {
	return validation.ValidateStruct(p,
		p.ProjectParams.rules(),
		validation.Field(&p.BoardID, validation.Required),
	)
}

func registerBoard() {
	define(Board, "get", "Get a board by id", func(ctx context.Context, env Env, p *boardByID) (Result, error) {
		base, err := p.boardBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, base+"/_apis/work/boards/"+seg(p.BoardID))
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Team)

	define(Board, "getAll", "List boards", func(ctx context.Context, env Env, p *BoardParams) (Result, error) {
		base, err := p.boardBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, base+"/_apis/work/boards")
		if err != nil {
			return nil, err
		}
		return list(res, "value"), nil
	}, resolve.Team)

	define(Board, "getColumns", "List the columns of a board", func(ctx context.Context, env Env, p *boardByID) (Result, error) {
		base, err := p.boardBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, base+"/_apis/work/boards/"+seg(p.BoardID)+"/columns")
		if err != nil {
			return nil, err
		}
		return list(res, "value"), nil
	}, resolve.Team)
}
