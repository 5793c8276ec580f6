package agentflow

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

// RoutedBy records which router produced the plan.
type RoutedBy string

const (
	RoutedByAI       RoutedBy = "ai"
	RoutedByFallback RoutedBy = "fallback"
)

type Options struct {
	// HistoryDepth is the number of previous messages fetched per message.
	HistoryDepth int
	// AdaptiveDepth asks the model for the depth before fetching history.
	AdaptiveDepth bool
}

// Report describes one pipeline run. Err is set when the run stopped early.
type Report struct {
	MessageID domain.MessageID      `json:"messageId"`
	ChatID    domain.ChatID         `json:"chatId"`
	Depth     int                   `json:"depth"`
	RoutedBy  RoutedBy              `json:"routedBy,omitempty"`
	Plan      *domain.ActionPlan    `json:"plan,omitempty"`
	Results   []domain.ActionResult `json:"results"`
	Err       string                `json:"error,omitempty"`
	ElapsedMs int64                 `json:"elapsedMs"`
}

// Orchestrator runs fetch -> route -> execute for each new message.
type Orchestrator struct {
	fetcher  *ContextFetcher
	router   *Router
	executor *Executor
	opts     Options
}

func NewOrchestrator(fetcher *ContextFetcher, router *Router, executor *Executor, opts Options) *Orchestrator {
	return &Orchestrator{
		fetcher:  fetcher,
		router:   router,
		executor: executor,
		opts:     opts,
	}
}

// HandleNewMessage processes one trigger event. It never returns an error
// and never panics; failures are logged and described in the report.
func (o *Orchestrator) HandleNewMessage(ctx context.Context, ev domain.TriggerEvent) (report *Report) {
	start := time.Now()
	report = &Report{
		MessageID: ev.MessageID,
		ChatID:    ev.ChatID,
		Results:   []domain.ActionResult{},
	}

	log := observability.LoggerFromContext(ctx).With().
		Str("message_id", string(ev.MessageID)).
		Str("chat_id", string(ev.ChatID)).
		Str("collection", string(ev.CollectionType)).
		Logger()
	log.Info().Msg("orchestrator started")

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("orchestrator panicked")
			report.Err = fmt.Sprintf("panic: %v", rec)
		}
		report.ElapsedMs = time.Since(start).Milliseconds()
		log.Info().Int64("elapsed_ms", report.ElapsedMs).Msg("orchestrator end")
	}()

	// fetch
	report.Depth = o.historyDepth(ctx, ev)
	stage := time.Now()
	ec, err := o.fetcher.FetchEnrichedContext(ctx, ev, report.Depth)
	if err != nil {
		log.Error().Err(err).Msg("context fetch failed, message left unprocessed")
		report.Err = err.Error()
		return report
	}
	log.Info().
		Int("previous", len(ec.PreviousMessages)).
		Int("participants", len(ec.Participants)).
		Int64("elapsed_ms", time.Since(stage).Milliseconds()).
		Msg("context fetched")

	// route
	stage = time.Now()
	plan, routedBy := o.route(ctx, ec, log)
	report.Plan = &plan
	report.RoutedBy = routedBy
	log.Info().
		Str("routed_by", string(routedBy)).
		Interface("actions", plan.Actions).
		Str("priority", string(plan.Priority)).
		Str("reasoning", plan.Reasoning).
		Int64("elapsed_ms", time.Since(stage).Milliseconds()).
		Msg("message routed")

	// execute
	stage = time.Now()
	report.Results = o.executor.ExecuteActionPlan(ctx, plan, ec)

	failed := 0
	for _, r := range report.Results {
		if !r.Success {
			failed++
			log.Warn().Str("action", string(r.ActionName)).Str("error", r.Error).Msg("action failed")
		}
	}
	log.Info().
		Int("actions", len(report.Results)).
		Int("failed", failed).
		Int64("elapsed_ms", time.Since(stage).Milliseconds()).
		Msg("actions executed")

	return report
}

func (o *Orchestrator) historyDepth(ctx context.Context, ev domain.TriggerEvent) int {
	if o.opts.AdaptiveDepth && o.router.HasAI() {
		return o.router.DetermineContextDepth(ctx, ev.MessageData.Text)
	}
	if o.opts.HistoryDepth < 0 {
		return DefaultHistoryDepth
	}
	return o.opts.HistoryDepth
}

// route uses the AI router when a generator is configured, and the
// rule-based plan otherwise or when the AI router breaks mid-flow.
func (o *Orchestrator) route(ctx context.Context, ec *domain.EnrichedContext, log zerolog.Logger) (plan domain.ActionPlan, by RoutedBy) {
	if !o.router.HasAI() {
		return FallbackActionPlan(ec), RoutedByFallback
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("AI router panicked, using fallback plan")
			plan, by = FallbackActionPlan(ec), RoutedByFallback
		}
	}()
	return o.router.AnalyzeMessageAndRoute(ctx, ec), RoutedByAI
}
