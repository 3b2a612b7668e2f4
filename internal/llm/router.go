package llm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/resilience"
)

// Entry pairs a backend target with its own retry budget.
type Entry struct {
	Target Target
	Retry  resilience.RetryConfig
}

// Router tries backend targets in priority order. Each target runs under its
// own retry budget; when a target exhausts its budget on transient failures
// the router moves to the next. A terminal status (4xx other than 408/429)
// stops the cascade immediately.
type Router struct {
	entries []Entry
}

// NewRouter creates a router over a prioritized target list.
func NewRouter(entries ...Entry) *Router {
	return &Router{entries: entries}
}

// Complete executes the request against the first target that succeeds.
func (r *Router) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(r.entries) == 0 {
		return nil, eris.New("llm: router has no targets")
	}

	var lastErr error
	for i, e := range r.entries {
		cfg := e.Retry
		if cfg.OnRetry == nil {
			cfg.OnRetry = resilience.RetryLogger(e.Target.Name(), "complete")
		}

		resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Response, error) {
			return e.Target.Complete(ctx, req)
		})
		if err == nil {
			if i > 0 {
				zap.L().Info("completion served by fallback target",
					zap.String("target", e.Target.Name()),
					zap.Int("priority", i),
				)
			}
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if resilience.IsTerminalStatus(lastErr) {
			zap.L().Error("backend target failed terminally",
				zap.String("target", e.Target.Name()),
				zap.Error(lastErr),
			)
			return nil, lastErr
		}

		zap.L().Warn("backend target exhausted, trying next",
			zap.String("target", e.Target.Name()),
			zap.Error(lastErr),
		)
	}

	return nil, eris.Wrap(lastErr, "llm: all targets exhausted")
}
