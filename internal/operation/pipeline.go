package operation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/util"
)

const pipelinesVersion = "?api-version=" + constants.PipelinesAPIVersion
const buildVersion = "?api-version=" + constants.BuildAPIVersion

// PipelineParams names a pipeline that is resolved to its id.
type PipelineParams struct {
	ProjectParams `param:",squash"`
	Pipeline      string `param:"pipeline"`
}

func (p *PipelineParams) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.pipelineRule())
}

func (p *PipelineParams) pipelineRule() *validation.FieldRules {
	return validation.Field(&p.Pipeline, validation.Required)
}

func (p *PipelineParams) pipelineBase(ctx context.Context, env Env) (string, error) {
	id, err := env.resolve(ctx, resolve.Pipeline, p.Project, p.Pipeline)
	if err != nil {
		return "", err
	}
	return p.base() + "/_apis/pipelines/" + seg(id), nil
}

type runPipeline struct {
	PipelineParams `param:",squash"`
	Parameters     any    `param:"parameters"`
	SkipStage      string `param:"skipStage"`
}

func (p *runPipeline) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.pipelineRule(),
		validation.Field(&p.Parameters, validation.By(func(any) error {
			_, err := p.templateParameters()
			return err
		})),
	)
}

// templateParameters accepts a JSON object string or an already decoded map.
func (p *runPipeline) templateParameters() (map[string]any, error) {
	switch v := p.Parameters.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, invalid("parameters", "invalid JSON: %v", err)
		}
		return m, nil
	default:
		return nil, invalid("parameters", "expected a JSON object, got %T", v)
	}
}

func (p *runPipeline) body() map[string]any {
	body := map[string]any{"resources": map[string]any{}}
	if tp, _ := p.templateParameters(); len(tp) > 0 {
		body["templateParameters"] = tp
	}
	if stages := util.SplitList(p.SkipStage); len(stages) > 0 {
		body["stagesToSkip"] = stages
	}
	return body
}

type runByID struct {
	ProjectParams `param:",squash"`
	RunID         string `param:"runId"`
}

func (p *runByID) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), validation.Field(&p.RunID, validation.Required))
}

type projectOnly struct {
	ProjectParams `param:",squash"`
}

func (p *projectOnly) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules())
}

func registerPipeline() {
	define(Pipeline, "run", "Queue a pipeline run", func(ctx context.Context, env Env, p *runPipeline) (Result, error) {
		path, err := p.pipelineBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.call(ctx, http.MethodPost, path+"/runs"+pipelinesVersion, p.body(), nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	}, resolve.Pipeline)

	define(Pipeline, "getRun", "Get a pipeline run", func(ctx context.Context, env Env, p *runByID) (Result, error) {
		res, err := env.get(ctx, p.base()+"/_apis/pipelines/runs/"+seg(p.RunID)+pipelinesVersion)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(Pipeline, "getAllPipelines", "List pipelines", func(ctx context.Context, env Env, p *projectOnly) (Result, error) {
		res, err := env.get(ctx, p.base()+"/_apis/pipelines"+pipelinesVersion)
		if err != nil {
			return nil, err
		}
		return env.values(envelope.Pipeline, res), nil
	})

	define(Pipeline, "getAllRuns", "List runs of a pipeline", func(ctx context.Context, env Env, p *PipelineParams) (Result, error) {
		path, err := p.pipelineBase(ctx, env)
		if err != nil {
			return nil, err
		}
		res, err := env.get(ctx, path+"/runs"+pipelinesVersion)
		if err != nil {
			return nil, err
		}
		return env.values(envelope.Pipeline, res), nil
	}, resolve.Pipeline)

	define(Pipeline, "getArtifacts", "List artifacts of a run", func(ctx context.Context, env Env, p *runByID) (Result, error) {
		res, err := env.get(ctx, p.base()+"/_apis/pipelines/runs/"+seg(p.RunID)+"/artifacts"+pipelinesVersion)
		if err != nil {
			return nil, err
		}
		return list(res, "value"), nil
	})

	define(Pipeline, "cancelRun", "Request cancellation of a run", func(ctx context.Context, env Env, p *runByID) (Result, error) {
		res, err := env.call(ctx, http.MethodPatch, p.base()+"/_apis/build/builds/"+seg(p.RunID)+buildVersion,
			map[string]any{"status": "cancelling"}, nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(Pipeline, "getLogs", "List the logs of a run", func(ctx context.Context, env Env, p *runByID) (Result, error) {
		res, err := env.get(ctx, p.base()+"/_apis/build/builds/"+seg(p.RunID)+"/logs"+buildVersion)
		if err != nil {
			return nil, err
		}
		return env.values(envelope.Pipeline, res), nil
	})
}
