package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/chatflow/internal/app/agentflow"
	"github.com/PabloGalante/chatflow/internal/domain"
)

type routeOutput struct {
	RoutedBy agentflow.RoutedBy `json:"routedBy"`
	Plan     domain.ActionPlan  `json:"plan"`
	Depth    *int               `json:"depth,omitempty"`
}

func newRouteCmd() *cobra.Command {
	var (
		previous     []string
		fallbackOnly bool
		withDepth    bool
	)

	cmd := &cobra.Command{
		Use:   "route [message]",
		Short: "Print the action plan for a message without running any action",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ec := adHocContext(text, previous, time.Now().UTC())

			var out routeOutput
			if fallbackOnly || !a.router.HasAI() {
				out.RoutedBy = agentflow.RoutedByFallback
				out.Plan = agentflow.FallbackActionPlan(ec)
			} else {
				out.RoutedBy = agentflow.RoutedByAI
				out.Plan = a.router.AnalyzeMessageAndRoute(cmd.Context(), ec)
			}

			if withDepth {
				d := a.router.DetermineContextDepth(cmd.Context(), text)
				out.Depth = &d
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringArrayVar(&previous, "previous", nil, "earlier message, oldest first (repeatable)")
	cmd.Flags().BoolVar(&fallbackOnly, "fallback", false, "use keyword routing even when AI is configured")
	cmd.Flags().BoolVar(&withDepth, "depth", false, "also print the suggested history depth")
	return cmd
}

// adHocContext builds a one-to-one context with a single "You" sender.
func adHocContext(text string, previous []string, now time.Time) *domain.EnrichedContext {
	ec := &domain.EnrichedContext{
		CurrentMessage: domain.CurrentMessageContext{
			MessageContext: domain.MessageContext{SenderName: "You", CreatedAt: now, Text: text},
			SenderID:       "cli",
			MessageID:      domain.MessageID(fmt.Sprintf("cli-%d", now.UnixMilli())),
		},
		PreviousMessages: make([]domain.MessageContext, 0, len(previous)),
		Participants:     []domain.ParticipantInfo{{UserID: "cli", Name: "You"}},
		ChatMetadata:     domain.ChatMetadata{ChatID: "cli", CollectionType: domain.CollectionChats},
	}
	for i, p := range previous {
		ec.PreviousMessages = append(ec.PreviousMessages, domain.MessageContext{
			SenderName: "You",
			CreatedAt:  now.Add(-time.Duration(len(previous)-i) * time.Minute),
			Text:       p,
		})
	}
	return ec
}
