package agentflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatflow/internal/adapters/llm"
	"github.com/PabloGalante/chatflow/internal/adapters/storage/memory"
	"github.com/PabloGalante/chatflow/internal/app/actions"
	"github.com/PabloGalante/chatflow/internal/domain"
)

type panicGenerator struct{}

func (panicGenerator) Generate(context.Context, domain.GenerateRequest) (*domain.GenerateResponse, error) {
	panic("generator exploded")
}

// newTestOrchestrator wires a seeded memory store. routerGen may be nil to
// run with rule-based routing only; handlerGen drives the handlers.
func newTestOrchestrator(t *testing.T, routerGen domain.Generator, handlerGen domain.Generator) (*Orchestrator, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	reg := actions.NewDefaultRegistry(handlerGen, s)
	o := NewOrchestrator(NewContextFetcher(s), NewRouter(routerGen, reg), NewExecutor(reg), Options{HistoryDepth: DefaultHistoryDepth})
	return o, s
}

func TestOrchestrator_UrgentMessageWithoutRouterAI(t *testing.T) {
	ctx := context.Background()
	handlers := llm.NewMockClient().On("priority_detection", `{"isPriority":true,"level":"urgent","reason":"production is down"}`)
	o, s := newTestOrchestrator(t, nil, handlers)

	report := o.HandleNewMessage(ctx, triggerAt("URGENT: prod is down, need help ASAP", base.Add(time.Hour), domain.CollectionChats))

	require.Empty(t, report.Err)
	assert.Equal(t, RoutedByFallback, report.RoutedBy)
	assert.Equal(t, []domain.ActionName{domain.ActionPriority}, report.Plan.Actions)
	assert.Equal(t, domain.PlanPriorityHigh, report.Plan.Priority)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Success)

	chat, err := s.GetChatPriorities(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, chat.Priorities, 1)
	assert.Equal(t, domain.PriorityLevelUrgent, chat.Priorities[0].Level)

	// ghost has no profile and is not in the roster
	for _, uid := range []domain.UserID{"u1", "u2"} {
		up, err := s.GetUserPriorities(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, domain.ChatID("c1"), up.Priorities[0].ChatID)
	}
	_, err = s.GetUserPriorities(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrchestrator_MeetingMessage(t *testing.T) {
	ctx := context.Background()
	handlers := llm.NewMockClient().On("calendar_extraction", `{"events":[{"title":"Meeting","date":"2026-03-03T15:00:00Z","time":"3pm"}]}`)
	o, s := newTestOrchestrator(t, nil, handlers)

	report := o.HandleNewMessage(ctx, triggerAt("Let's meet tomorrow at 3pm", base.Add(time.Hour), domain.CollectionChats))

	require.Empty(t, report.Err)
	assert.Equal(t, []domain.ActionName{domain.ActionCalendar}, report.Plan.Actions)

	cal, err := s.GetUserCalendar(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.Equal(t, "3pm", cal.Events[0].Time)
	assert.Equal(t, "event-m1-0", cal.Events[0].ID)

	calls := handlers.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, base.Add(time.Hour).Format(time.RFC3339))
}

func TestOrchestrator_ThanksRunsBothAndWritesNothing(t *testing.T) {
	ctx := context.Background()
	o, s := newTestOrchestrator(t, nil, llm.NewMockClient())

	report := o.HandleNewMessage(ctx, triggerAt("Thanks!", base.Add(time.Hour), domain.CollectionChats))

	require.Empty(t, report.Err)
	assert.Equal(t, []domain.ActionName{domain.ActionPriority, domain.ActionCalendar}, report.Plan.Actions)
	assert.Equal(t, domain.PlanPriorityLow, report.Plan.Priority)
	require.Len(t, report.Results, 2)
	for _, r := range report.Results {
		assert.True(t, r.Success)
	}

	_, err := s.GetChatPriorities(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetChatCalendar(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrchestrator_AIRouting(t *testing.T) {
	gen := llm.NewMockClient().
		On("action_plan", `{"actions":["priority"],"priority":"high","reasoning":"outage"}`).
		On("priority_detection", `{"isPriority":false}`)
	o, _ := newTestOrchestrator(t, gen, gen)

	report := o.HandleNewMessage(context.Background(), triggerAt("prod is down", base.Add(time.Hour), domain.CollectionChats))

	assert.Equal(t, RoutedByAI, report.RoutedBy)
	assert.Equal(t, []domain.ActionName{domain.ActionPriority}, report.Plan.Actions)
	require.Len(t, report.Results, 1)
}

func TestOrchestrator_AIRoutingFailureRunsNothing(t *testing.T) {
	gen := llm.NewMockClient().Fail("action_plan", &llm.ProviderError{Provider: "gemini", Code: 500})
	o, _ := newTestOrchestrator(t, gen, gen)

	report := o.HandleNewMessage(context.Background(), triggerAt("URGENT", base.Add(time.Hour), domain.CollectionChats))

	assert.Empty(t, report.Err)
	assert.Equal(t, RoutedByAI, report.RoutedBy)
	assert.Equal(t, "AI routing failed", report.Plan.Reasoning)
	assert.Empty(t, report.Results)
}

func TestOrchestrator_RouterPanicFallsBack(t *testing.T) {
	o, _ := newTestOrchestrator(t, panicGenerator{}, llm.NewMockClient())

	report := o.HandleNewMessage(context.Background(), triggerAt("Thanks!", base.Add(time.Hour), domain.CollectionChats))

	assert.Empty(t, report.Err)
	assert.Equal(t, RoutedByFallback, report.RoutedBy)
	assert.Len(t, report.Results, 2)
}

func TestOrchestrator_MissingChatIsSwallowed(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil, llm.NewMockClient())

	var report *Report
	assert.NotPanics(t, func() {
		report = o.HandleNewMessage(context.Background(), triggerAt("hi", base, domain.CollectionGroups))
	})
	assert.Contains(t, report.Err, "not found")
	assert.Nil(t, report.Plan)
	assert.Empty(t, report.Results)
}

func TestOrchestrator_AdaptiveDepth(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	gen := llm.NewMockClient().On("context_depth", `{"depth":1}`)
	reg := actions.NewDefaultRegistry(gen, s)
	o := NewOrchestrator(NewContextFetcher(s), NewRouter(gen, reg), NewExecutor(reg), Options{HistoryDepth: 5, AdaptiveDepth: true})

	report := o.HandleNewMessage(context.Background(), triggerAt("yes", base.Add(time.Hour), domain.CollectionChats))
	assert.Equal(t, 1, report.Depth)
}
