package dispatch

import (
	"context"
	"fmt"

	"github.com/loykin/adorun/internal/common"
	"github.com/loykin/adorun/internal/envelope"
	"github.com/loykin/adorun/internal/operation"
	"github.com/loykin/adorun/internal/resolve"
	"github.com/loykin/adorun/internal/transport"
)

// Item is one unit of the batch: the upstream JSON and its parameter bag.
// When Render is set it produces the bag inside the item's failure boundary
// and Params is ignored.
type Item struct {
	Index  int
	JSON   map[string]any
	Params map[string]any
	Render func() (map[string]any, error)
}

func (it Item) params() (map[string]any, error) {
	if it.Render == nil {
		return it.Params, nil
	}
	return it.Render()
}

// Output is one produced object tagged with the index of its input item.
type Output struct {
	Index int            `json:"index"`
	JSON  map[string]any `json:"json"`
	// Failed marks the error entry of an item in continue-on-failure mode.
	Failed bool `json:"-"`
}

// ItemError wraps the failure that aborted a strict batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("item %d: %v", e.Index, e.Err) }

func (e *ItemError) Unwrap() error { return e.Err }

// Options configures a Dispatcher.
type Options struct {
	// ContinueOnFail turns per-item errors into {"error": msg} outputs.
	ContinueOnFail bool
	// Memoize caches name lookups for the duration of one Run.
	Memoize    bool
	Normalizer envelope.Normalizer
	Logger     *common.Logger
}

// Dispatcher executes one operation over a batch of items, sequentially.
type Dispatcher struct {
	t      transport.Requester
	opts   Options
	logger *common.Logger
}

// New creates a Dispatcher sending requests through t.
func New(t transport.Requester, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Dispatcher{t: t, opts: opts, logger: logger.WithComponent("dispatch")}
}

// Run processes items in order. In strict mode the first failure aborts the
// batch and no output is returned. A cancelled ctx always aborts.
func (d *Dispatcher) Run(ctx context.Context, key operation.Key, items []Item) ([]Output, error) {
	spec, err := operation.Lookup(key.Resource, key.Operation)
	if err != nil {
		return nil, err
	}
	logger := d.logger.WithOperation(string(key.Resource), key.Operation)
	env := operation.Env{
		Transport:  d.t,
		Resolver:   resolve.New(d.t, resolve.Options{Memoize: d.opts.Memoize, Logger: d.logger}),
		Normalizer: d.opts.Normalizer,
		Logger:     logger,
	}

	logger.Info("starting batch", "items", len(items), "continue_on_fail", d.opts.ContinueOnFail)
	out := make([]Output, 0, len(items))
	failed := 0
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			logger.Warn("batch cancelled", "item", it.Index, "error", err)
			return nil, fmt.Errorf("batch cancelled before item %d: %w", it.Index, err)
		}
		ilog := logger.WithItem(it.Index)
		var res operation.Result
		bag, err := it.params()
		if err == nil {
			res, err = spec.Execute(ctx, env, bag)
		}
		if err != nil {
			if ctx.Err() != nil || !d.opts.ContinueOnFail {
				ilog.Error("item failed, aborting batch", "error", err)
				return nil, &ItemError{Index: it.Index, Err: err}
			}
			ilog.Warn("item failed, continuing", "error", err)
			failed++
			out = append(out, Output{Index: it.Index, JSON: map[string]any{"error": err.Error()}, Failed: true})
			continue
		}
		ilog.Debug("item done", "outputs", len(res))
		for _, obj := range res {
			out = append(out, Output{Index: it.Index, JSON: obj})
		}
	}
	logger.Info("batch finished", "items", len(items), "outputs", len(out), "failed", failed, "lookups", env.Resolver.Lookups())
	return out, nil
}
