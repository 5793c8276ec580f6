package agentflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatflow/internal/app/actions"
	"github.com/PabloGalante/chatflow/internal/domain"
)

func okHandler(name domain.ActionName, delay time.Duration) actions.Handler {
	return actions.HandlerFunc{
		ActionName: name,
		Fn: func(ctx context.Context, _ *domain.EnrichedContext, meta domain.ActionMetadata) (domain.ActionResult, error) {
			time.Sleep(delay)
			return domain.ActionResult{
				ActionName: name,
				Success:    true,
				Data:       map[string]any{"priority": string(meta.Priority)},
			}, nil
		},
	}
}

func TestExecutor_EmptyPlan(t *testing.T) {
	res := NewExecutor(actions.NewRegistry()).ExecuteActionPlan(context.Background(), domain.ActionPlan{}, enriched("hi"))
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestExecutor_IsolatesFailures(t *testing.T) {
	reg := actions.NewRegistry(
		actions.HandlerFunc{
			ActionName: "a",
			Fn: func(context.Context, *domain.EnrichedContext, domain.ActionMetadata) (domain.ActionResult, error) {
				return domain.ActionResult{}, errors.New("handler a broke")
			},
		},
		okHandler("b", 0),
	)

	res := NewExecutor(reg).ExecuteActionPlan(context.Background(),
		domain.ActionPlan{Actions: []domain.ActionName{"a", "b"}, Priority: domain.PlanPriorityMedium},
		enriched("hi"))

	require.Len(t, res, 2)
	assert.Equal(t, domain.ActionResult{ActionName: "a", Success: false, Error: "handler a broke"}, res[0])
	assert.True(t, res[1].Success)
	assert.Equal(t, "medium", res[1].Data["priority"])
}

func TestExecutor_UnknownAction(t *testing.T) {
	res := NewExecutor(actions.NewRegistry(okHandler("b", 0))).ExecuteActionPlan(context.Background(),
		domain.ActionPlan{Actions: []domain.ActionName{"translate", "b"}},
		enriched("hi"))

	require.Len(t, res, 2)
	assert.Equal(t, domain.FailedResult("translate", "Unknown action: translate"), res[0])
	assert.True(t, res[1].Success)
}

func TestExecutor_RecoversPanics(t *testing.T) {
	reg := actions.NewRegistry(actions.HandlerFunc{
		ActionName: "boom",
		Fn: func(context.Context, *domain.EnrichedContext, domain.ActionMetadata) (domain.ActionResult, error) {
			panic("nil map")
		},
	})

	res := NewExecutor(reg).ExecuteActionPlan(context.Background(), domain.ActionPlan{Actions: []domain.ActionName{"boom"}}, enriched("hi"))

	require.Len(t, res, 1)
	assert.False(t, res[0].Success)
	assert.Contains(t, res[0].Error, "nil map")
}

func TestExecutor_ConcurrentKeepsPlanOrder(t *testing.T) {
	var running, peak int32
	track := func(name domain.ActionName, delay time.Duration) actions.Handler {
		return actions.HandlerFunc{
			ActionName: name,
			Fn: func(context.Context, *domain.EnrichedContext, domain.ActionMetadata) (domain.ActionResult, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(delay)
				atomic.AddInt32(&running, -1)
				return domain.ActionResult{ActionName: name, Success: true}, nil
			},
		}
	}

	reg := actions.NewRegistry(track("slow", 60*time.Millisecond), track("fast", 0), track("mid", 30*time.Millisecond))
	plan := domain.ActionPlan{Actions: []domain.ActionName{"slow", "fast", "mid"}}

	res := NewExecutor(reg).ExecuteActionPlan(context.Background(), plan, enriched("hi"))

	require.Len(t, res, 3)
	for i, name := range plan.Actions {
		assert.Equal(t, name, res[i].ActionName)
	}
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestExecutor_FillsMissingActionName(t *testing.T) {
	reg := actions.NewRegistry(actions.HandlerFunc{
		ActionName: "quiet",
		Fn: func(context.Context, *domain.EnrichedContext, domain.ActionMetadata) (domain.ActionResult, error) {
			return domain.ActionResult{Success: true}, nil
		},
	})

	res := NewExecutor(reg).ExecuteActionPlan(context.Background(), domain.ActionPlan{Actions: []domain.ActionName{"quiet"}}, enriched("hi"))
	assert.Equal(t, domain.ActionName("quiet"), res[0].ActionName)
}
