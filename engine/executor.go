package engine

import (
	"context"
	"errors"
	"time"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/vector"
)

// DefaultTimeout bounds a single engine call.
const DefaultTimeout = 60 * time.Second

// Executor submits a request to a vector engine under a deadline and maps
// engine failures onto the core sentinels.
type Executor struct {
	engine  vector.Engine
	timeout time.Duration
}

func NewExecutor(engine vector.Engine, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{engine: engine, timeout: timeout}
}

func (e *Executor) Execute(ctx context.Context, req query.SearchRequest) ([]vector.MatchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if req.Seed == query.SeedStrict {
		if err := e.checkSeed(ctx, req); err != nil {
			return nil, err
		}
	}

	raw, err := e.engine.Search(ctx, req)
	if err != nil {
		return nil, classify(ctx, "executor.search", err)
	}
	if len(raw) > req.TopK {
		raw = raw[:req.TopK]
	}
	return raw, nil
}

func (e *Executor) checkSeed(ctx context.Context, req query.SearchRequest) error {
	counter, ok := e.engine.(vector.SeedCounter)
	if !ok {
		return nil
	}
	n, err := counter.CountSeeds(ctx, req.Anchor, req.RadiusMeters)
	if err != nil {
		return classify(ctx, "executor.seed", err)
	}
	if n != 1 {
		return core.Errorf("executor.seed", core.ErrAmbiguousSeed,
			"%d index records within %gm of %s", n, req.RadiusMeters, req.Anchor)
	}
	return nil
}

func classify(ctx context.Context, op string, err error) error {
	var se *core.SearchError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.Errorf(op, core.ErrEngineTimeout, "%v", err)
	}
	return core.Errorf(op, core.ErrEngineUnavailable, "%v", err)
}
