package agentflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PabloGalante/chatflow/internal/app/actions"
	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

// Executor runs the actions of a plan concurrently.
type Executor struct {
	registry *actions.Registry
}

func NewExecutor(registry *actions.Registry) *Executor {
	return &Executor{registry: registry}
}

// ExecuteActionPlan starts every action of the plan and waits for all of
// them. It never fails: unknown actions, handler errors and panics become
// failed results. Results are in plan order, one per planned action.
func (e *Executor) ExecuteActionPlan(ctx context.Context, plan domain.ActionPlan, ec *domain.EnrichedContext) []domain.ActionResult {
	results := make([]domain.ActionResult, len(plan.Actions))
	if len(plan.Actions) == 0 {
		return results
	}

	meta := domain.ActionMetadata{Priority: plan.Priority, Reasoning: plan.Reasoning}

	var wg sync.WaitGroup
	for i, name := range plan.Actions {
		h, ok := e.registry.Lookup(name)
		if !ok {
			results[i] = domain.FailedResult(name, fmt.Sprintf("Unknown action: %s", name))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.run(ctx, h, ec, meta)
		}()
	}
	wg.Wait()

	return results
}

func (e *Executor) run(ctx context.Context, h actions.Handler, ec *domain.EnrichedContext, meta domain.ActionMetadata) (res domain.ActionResult) {
	name := h.Name()
	log := observability.LoggerFromContext(ctx).With().Str("action", string(name)).Logger()
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("action panicked")
			res = domain.FailedResult(name, fmt.Sprintf("panic: %v", rec))
		}
		log.Info().
			Bool("success", res.Success).
			Int64("elapsed_ms", time.Since(start).Milliseconds()).
			Msg("action finished")
	}()

	var err error
	res, err = h.Run(ctx, ec, meta)
	if err != nil {
		return domain.FailedResult(name, err.Error())
	}
	if res.ActionName == "" {
		res.ActionName = name
	}
	return res
}
