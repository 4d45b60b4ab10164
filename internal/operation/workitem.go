package operation

import (
	"context"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/loykin/adorun/internal/constants"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/params"
	"github.com/loykin/adorun/internal/util"
	"github.com/tidwall/gjson"
)

// jsonPatch is the content type the work item endpoints expect for PATCH bodies.
var jsonPatch = map[string]string{"Content-Type": "application/json-patch+json"}

// PatchOp is one JSON-Patch entry.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// FieldPatch builds one entry per field, in order, with path /fields/<name>.
func FieldPatch(op string, fields params.Fields) []PatchOp {
	out := make([]PatchOp, 0, len(fields))
	for _, f := range fields {
		out = append(out, PatchOp{Op: op, Path: "/fields/" + f.Name, Value: f.Value})
	}
	return out
}

func (p *ProjectParams) workItems() string { return p.base() + "/_apis/wit/workitems" }

// WorkItemByID addresses one work item.
type WorkItemByID struct {
	ProjectParams `param:",squash"`
	WorkItemID    string `param:"workItemId"`
}

func (p *WorkItemByID) idRule() *validation.FieldRules {
	return validation.Field(&p.WorkItemID, validation.Required)
}

func (p *WorkItemByID) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.idRule())
}

func (p *WorkItemByID) path() string { return p.workItems() + "/" + seg(p.WorkItemID) }

func (p *WorkItemByID) comments() string {
	return p.base() + "/_apis/wit/workItems/" + seg(p.WorkItemID) + "/comments?api-version=" + constants.CommentsAPIVersion
}

type createWorkItem struct {
	ProjectParams `param:",squash"`
	WorkItemType  string        `param:"workItemType"`
	Fields        params.Fields `param:"fields"`
}

func (p *createWorkItem) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(),
		validation.Field(&p.WorkItemType, validation.Required),
		validation.Field(&p.Fields, validation.Required),
	)
}

type updateWorkItem struct {
	WorkItemByID `param:",squash"`
	Fields       params.Fields `param:"fields"`
}

func (p *updateWorkItem) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.idRule(),
		validation.Field(&p.Fields, validation.Required))
}

type queryWorkItems struct {
	ProjectParams `param:",squash"`
	Query         string `param:"query"`
}

func (p *queryWorkItems) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), validation.Field(&p.Query, validation.Required))
}

type allWorkItems struct {
	ProjectParams `param:",squash"`
	LimitParams   `param:",squash"`
	WorkItemType  string `param:"workItemType"`
}

func (p *allWorkItems) SetDefaults() { p.Limit = constants.DefaultLimit }

func (p *allWorkItems) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.LimitParams.rules())
}

type addComment struct {
	WorkItemByID `param:",squash"`
	Comment      string `param:"comment"`
}

func (p *addComment) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.idRule(),
		validation.Field(&p.Comment, validation.Required))
}

type listComments struct {
	WorkItemByID `param:",squash"`
	LimitParams  `param:",squash"`
}

func (p *listComments) SetDefaults() { p.Limit = constants.DefaultLimit }

func (p *listComments) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.idRule(), p.LimitParams.rules())
}

type addAttachment struct {
	WorkItemByID   `param:",squash"`
	AttachmentURL  string `param:"attachmentUrl"`
	AttachmentName string `param:"attachmentName"`
}

func (p *addAttachment) Validate() error {
	return validation.ValidateStruct(p, p.ProjectParams.rules(), p.idRule(),
		validation.Field(&p.AttachmentURL, validation.Required))
}

func registerWorkItem() {
	define(WorkItem, "get", "Get a work item", func(ctx context.Context, env Env, p *WorkItemByID) (Result, error) {
		res, err := env.get(ctx, p.path())
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(WorkItem, "create", "Create a work item of a type", func(ctx context.Context, env Env, p *createWorkItem) (Result, error) {
		res, err := env.call(ctx, http.MethodPatch, p.workItems()+"/$"+seg(p.WorkItemType), FieldPatch("add", p.Fields), jsonPatch)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(WorkItem, "update", "Replace fields of a work item", func(ctx context.Context, env Env, p *updateWorkItem) (Result, error) {
		res, err := env.call(ctx, http.MethodPatch, p.path(), FieldPatch("replace", p.Fields), jsonPatch)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(WorkItem, "delete", "Delete a work item", func(ctx context.Context, env Env, p *WorkItemByID) (Result, error) {
		res, err := env.call(ctx, http.MethodDelete, p.path(), nil, nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(WorkItem, "query", "Run a WIQL query and fetch the matching work items", func(ctx context.Context, env Env, p *queryWorkItems) (Result, error) {
		res, err := env.call(ctx, http.MethodPost, p.base()+"/_apis/wit/wiql", map[string]any{"query": p.Query}, nil)
		if err != nil {
			return nil, err
		}
		var ids []string
		res.Get("workItems").ForEach(func(_, wi gjson.Result) bool {
			if id := wi.Get("id").String(); id != "" {
				ids = append(ids, id)
			}
			return true
		})
		if len(ids) == 0 {
			return Result{}, nil
		}
		items, err := env.get(ctx, p.workItems()+"?ids="+strings.Join(ids, ","))
		if err != nil {
			return nil, err
		}
		return env.values(envelope.WorkItem, items), nil
	})

	define(WorkItem, "getAll", "List work items, optionally of one type", func(ctx context.Context, env Env, p *allWorkItems) (Result, error) {
		endpoint := p.workItems()
		if t := trimmed(p.WorkItemType); t != "" {
			endpoint += "?types=" + util.EscapeComponent(t)
		}
		res, err := env.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		return envelope.Truncate(env.values(envelope.WorkItem, res), p.Limit), nil
	})

	define(WorkItem, "addComment", "Add a comment to a work item", func(ctx context.Context, env Env, p *addComment) (Result, error) {
		res, err := env.call(ctx, http.MethodPost, p.comments(), map[string]any{"text": p.Comment}, nil)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})

	define(WorkItem, "getComments", "List the comments of a work item", func(ctx context.Context, env Env, p *listComments) (Result, error) {
		res, err := env.get(ctx, p.comments())
		if err != nil {
			return nil, err
		}
		return envelope.Truncate(list(res, "comments"), p.Limit), nil
	})

	define(WorkItem, "addAttachment", "Link an uploaded attachment to a work item", func(ctx context.Context, env Env, p *addAttachment) (Result, error) {
		body := []PatchOp{{
			Op:   "add",
			Path: "/relations/-",
			Value: map[string]any{
				"rel":        "AttachedFile",
				"url":        p.AttachmentURL,
				"attributes": map[string]any{"comment": p.AttachmentName},
			},
		}}
		res, err := env.call(ctx, http.MethodPatch, p.path(), body, jsonPatch)
		if err != nil {
			return nil, err
		}
		return single(res), nil
	})
}
