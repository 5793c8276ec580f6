package agentflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/chatflow/internal/app/actions"
	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

const routingFailedReason = "AI routing failed"

// FailOpenPlan is returned by the router whenever the AI call fails.
func FailOpenPlan() domain.ActionPlan {
	return domain.ActionPlan{
		Actions:   []domain.ActionName{},
		Priority:  domain.PlanPriorityLow,
		Reasoning: routingFailedReason,
	}
}

// Router picks the actions to run for a message using the generator.
// The available actions and their selection criteria come from the registry.
type Router struct {
	gen      domain.Generator
	registry *actions.Registry
}

// NewRouter accepts a nil generator; HasAI then reports false and callers
// are expected to use FallbackActionPlan.
func NewRouter(gen domain.Generator, registry *actions.Registry) *Router {
	return &Router{gen: gen, registry: registry}
}

func (r *Router) HasAI() bool {
	return r != nil && r.gen != nil
}

type routeOutput struct {
	Actions   []string `json:"actions"`
	Priority  string   `json:"priority,omitempty"`
	Reasoning string   `json:"reasoning,omitempty"`
}

// AnalyzeMessageAndRoute never fails: any error from the model yields
// FailOpenPlan.
func (r *Router) AnalyzeMessageAndRoute(ctx context.Context, ec *domain.EnrichedContext) domain.ActionPlan {
	log := observability.LoggerFromContext(ctx).With().
		Str("component", "router").
		Str("message_id", string(ec.CurrentMessage.MessageID)).
		Logger()

	if !r.HasAI() {
		log.Warn().Msg("router called without a generator")
		return FailOpenPlan()
	}

	resp, err := r.gen.Generate(ctx, domain.GenerateRequest{
		Name:   "action_plan",
		Prompt: r.buildPrompt(ec),
		Schema: r.schema(),
	})
	if err != nil {
		log.Error().Err(err).Msg("AI routing failed")
		return FailOpenPlan()
	}

	var out routeOutput
	if err := resp.Decode(&out); err != nil {
		log.Error().Err(err).Msg("AI routing returned no usable plan")
		return FailOpenPlan()
	}

	return r.validate(ctx, out)
}

// validate keeps only registered action names, once each, in model order.
func (r *Router) validate(ctx context.Context, out routeOutput) domain.ActionPlan {
	log := observability.LoggerFromContext(ctx)

	plan := domain.ActionPlan{
		Actions:   make([]domain.ActionName, 0, len(out.Actions)),
		Priority:  domain.PlanPriority(strings.ToLower(strings.TrimSpace(out.Priority))),
		Reasoning: out.Reasoning,
	}
	if !plan.Priority.Valid() {
		plan.Priority = domain.PlanPriorityLow
	}

	seen := make(map[domain.ActionName]bool, len(out.Actions))
	for _, raw := range out.Actions {
		name := domain.ActionName(strings.ToLower(strings.TrimSpace(raw)))
		if seen[name] {
			continue
		}
		if _, ok := r.registry.Lookup(name); !ok {
			log.Warn().Str("action", raw).Msg("router proposed an unregistered action, dropped")
			continue
		}
		seen[name] = true
		plan.Actions = append(plan.Actions, name)
	}
	return plan
}

func (r *Router) schema() *domain.Schema {
	names := r.registry.Names()
	enum := make([]string, 0, len(names))
	for _, n := range names {
		enum = append(enum, string(n))
	}

	return &domain.Schema{
		Type: domain.TypeObject,
		Properties: map[string]*domain.Schema{
			"actions": {
				Type:  domain.TypeArray,
				Items: &domain.Schema{Type: domain.TypeString, Enum: enum},
			},
			"priority": {
				Type: domain.TypeString,
				Enum: []string{string(domain.PlanPriorityHigh), string(domain.PlanPriorityMedium), string(domain.PlanPriorityLow)},
			},
			"reasoning": {Type: domain.TypeString},
		},
		Required: []string{"actions"},
	}
}

func (r *Router) buildPrompt(ec *domain.EnrichedContext) string {
	var available strings.Builder
	for _, h := range r.registry.Handlers() {
		fmt.Fprintf(&available, "- %s: %s\n", h.Name(), h.Description())
	}

	return fmt.Sprintf(routerPrompt,
		chatKind(ec),
		actions.FormatHistory(ec.PreviousMessages),
		actions.FormatCurrent(ec.CurrentMessage.MessageContext),
		strings.TrimRight(available.String(), "\n"),
	)
}

func chatKind(ec *domain.EnrichedContext) string {
	if ec.ChatMetadata.IsGroup {
		return fmt.Sprintf("a group chat with %d participants", len(ec.Participants))
	}
	return "a one-to-one chat"
}

const routerPrompt = `You route chat messages to background actions.
The message below was sent in %s.

Previous messages (oldest first):
%s

Current message:
%s

Available actions:
%s

Pick every action that applies to the CURRENT message; previous messages are context only.
Pick none when the message is small talk. Set priority to "high" for urgent matters,
"medium" for time-bound plans and "low" otherwise, and explain the choice in one sentence.`
