package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/chatflow/internal/domain"
	"github.com/PabloGalante/chatflow/internal/observability"
)

const defaultPriorityReason = "Priority detected"

// PriorityDetection is the structured answer of a priority detector.
type PriorityDetection struct {
	IsPriority bool                 `json:"isPriority"`
	Level      domain.PriorityLevel `json:"level,omitempty"`
	Reason     string               `json:"reason,omitempty"`
}

type PriorityDetector interface {
	DetectPriority(ctx context.Context, previous []domain.MessageContext, current domain.MessageContext) (PriorityDetection, error)
}

var prioritySchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"isPriority": {Type: domain.TypeBoolean},
		"level": {
			Type: domain.TypeString,
			Enum: []string{string(domain.PriorityLevelHigh), string(domain.PriorityLevelUrgent)},
		},
		"reason": {Type: domain.TypeString},
	},
	Required: []string{"isPriority"},
}

// AIPriorityDetector asks the generator to classify a message.
type AIPriorityDetector struct {
	gen domain.Generator
}

func NewAIPriorityDetector(gen domain.Generator) *AIPriorityDetector {
	return &AIPriorityDetector{gen: gen}
}

// DetectPriority returns a negative detection when the model produced no
// structured output. Transport errors are returned.
func (d *AIPriorityDetector) DetectPriority(
	ctx context.Context,
	previous []domain.MessageContext,
	current domain.MessageContext,
) (PriorityDetection, error) {
	resp, err := d.gen.Generate(ctx, domain.GenerateRequest{
		Name:   "priority_detection",
		Prompt: fmt.Sprintf(priorityPrompt, FormatHistory(previous), FormatCurrent(current)),
		Schema: prioritySchema,
	})
	if err != nil {
		return PriorityDetection{}, fmt.Errorf("priority detection: %w", err)
	}

	var out PriorityDetection
	if err := resp.Decode(&out); err != nil {
		if errors.Is(err, domain.ErrNoOutput) {
			return PriorityDetection{}, nil
		}
		return PriorityDetection{}, fmt.Errorf("priority detection decode: %w", err)
	}
	return out, nil
}

// PriorityHandler flags messages that need attention and appends the flag
// to the chat's priorities and to every participant's priorities.
type PriorityHandler struct {
	detector PriorityDetector
	store    domain.ProjectionStore
	now      func() time.Time
}

func NewPriorityHandler(detector PriorityDetector, store domain.ProjectionStore) *PriorityHandler {
	return &PriorityHandler{
		detector: detector,
		store:    store,
		now:      time.Now,
	}
}

func (h *PriorityHandler) Name() domain.ActionName { return domain.ActionPriority }

func (h *PriorityHandler) Description() string {
	return "Detect whether the message is urgent or high priority. Select it when the message " +
		"mentions urgency, emergencies, outages, blockers, deadlines, important requests or asks " +
		"for something to be done as soon as possible."
}

// Run never returns an error: failures are reported in the result.
func (h *PriorityHandler) Run(ctx context.Context, ec *domain.EnrichedContext, _ domain.ActionMetadata) (domain.ActionResult, error) {
	log := observability.LoggerFromContext(ctx).With().
		Str("action", string(domain.ActionPriority)).
		Str("message_id", string(ec.CurrentMessage.MessageID)).
		Logger()

	if strings.TrimSpace(ec.CurrentMessage.Text) == "" {
		return domain.ActionResult{
			ActionName: domain.ActionPriority,
			Success:    true,
			Data:       map[string]any{"skipped": true, "reason": "no text"},
		}, nil
	}

	det, err := h.detector.DetectPriority(ctx, ec.PreviousMessages, ec.CurrentMessage.MessageContext)
	if err != nil {
		log.Error().Err(err).Msg("priority detection failed")
		return domain.FailedResult(domain.ActionPriority, err.Error()), nil
	}

	if !det.IsPriority || !det.Level.Valid() {
		return domain.ActionResult{
			ActionName: domain.ActionPriority,
			Success:    true,
			Data:       map[string]any{"isPriority": false},
		}, nil
	}

	reason := strings.TrimSpace(det.Reason)
	if reason == "" {
		reason = defaultPriorityReason
	}
	p := domain.Priority{
		MessageID: ec.CurrentMessage.MessageID,
		Level:     det.Level,
		Reason:    reason,
		Timestamp: h.now(),
	}

	if err := h.write(ctx, ec, p); err != nil {
		log.Error().Err(err).Msg("priority write failed")
		return domain.FailedResult(domain.ActionPriority, err.Error()), nil
	}

	log.Info().Str("level", string(p.Level)).Int("users", len(ec.Participants)).Msg("priority recorded")
	return domain.ActionResult{
		ActionName: domain.ActionPriority,
		Success:    true,
		Data: map[string]any{
			"isPriority":   true,
			"level":        string(p.Level),
			"reason":       p.Reason,
			"usersUpdated": len(ec.Participants),
		},
	}, nil
}

// write appends to the chat projection, then to every participant's
// projection concurrently. A failed user write does not cancel the others.
func (h *PriorityHandler) write(ctx context.Context, ec *domain.EnrichedContext, p domain.Priority) error {
	chatID := ec.ChatMetadata.ChatID
	if err := h.store.AppendChatPriorities(ctx, chatID, p); err != nil {
		return fmt.Errorf("append chat priorities: %w", err)
	}

	up := domain.UserPriority{Priority: p, ChatID: chatID}
	var g errgroup.Group
	for _, participant := range ec.Participants {
		userID := participant.UserID
		g.Go(func() error {
			if err := h.store.AppendUserPriorities(ctx, userID, up); err != nil {
				return fmt.Errorf("append user priorities %s: %w", userID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
