package agentflow

import (
	"context"
	"fmt"

	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

const maxHistoryDepth = 10

var depthSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"depth":     {Type: domain.TypeInteger, Description: "number of previous messages needed, 0 to 10"},
		"reasoning": {Type: domain.TypeString},
	},
	Required: []string{"depth"},
}

// DetermineContextDepth estimates how many previous messages are needed to
// understand text. The result is clamped to [0, 10]; DefaultHistoryDepth is
// returned when the model is unavailable or fails.
func (r *Router) DetermineContextDepth(ctx context.Context, text string) int {
	if !r.HasAI() {
		return DefaultHistoryDepth
	}

	resp, err := r.gen.Generate(ctx, domain.GenerateRequest{
		Name:   "context_depth",
		Prompt: fmt.Sprintf(depthPrompt, text),
		Schema: depthSchema,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("context depth estimation failed")
		return DefaultHistoryDepth
	}

	var out struct {
		Depth *int `json:"depth"`
	}
	if err := resp.Decode(&out); err != nil || out.Depth == nil {
		return DefaultHistoryDepth
	}
	return clampDepth(*out.Depth)
}

func clampDepth(d int) int {
	switch {
	case d < 0:
		return 0
	case d > maxHistoryDepth:
		return maxHistoryDepth
	default:
		return d
	}
}

const depthPrompt = `How many previous chat messages (0 to 10) are needed to understand this message?
Self-contained messages need 0. Replies such as "yes", "sounds good" or "what about then?" need more.

Message:
%s`
