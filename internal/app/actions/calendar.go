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

// ExtractedEvent is one event as returned by an extractor. Date is an ISO
// 8601 string still to be resolved.
type ExtractedEvent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Date         string   `json:"date"`
	Time         string   `json:"time,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

type ExtractionRequest struct {
	Previous         []domain.MessageContext
	Current          domain.MessageContext
	ParticipantNames []string
	// ReferenceDate anchors relative expressions such as "tomorrow".
	ReferenceDate time.Time
}

type EventExtractor interface {
	ExtractEvents(ctx context.Context, req ExtractionRequest) ([]ExtractedEvent, error)
}

var calendarSchema = &domain.Schema{
	Type: domain.TypeObject,
	Properties: map[string]*domain.Schema{
		"events": {
			Type: domain.TypeArray,
			Items: &domain.Schema{
				Type: domain.TypeObject,
				Properties: map[string]*domain.Schema{
					"title":        {Type: domain.TypeString},
					"description":  {Type: domain.TypeString},
					"date":         {Type: domain.TypeString, Description: "ISO 8601 date or date-time"},
					"time":         {Type: domain.TypeString},
					"participants": {Type: domain.TypeArray, Items: &domain.Schema{Type: domain.TypeString}},
				},
				Required: []string{"title", "date"},
			},
		},
	},
	Required: []string{"events"},
}

// AIEventExtractor asks the generator for the events a message mentions.
type AIEventExtractor struct {
	gen domain.Generator
}

func NewAIEventExtractor(gen domain.Generator) *AIEventExtractor {
	return &AIEventExtractor{gen: gen}
}

func (x *AIEventExtractor) ExtractEvents(ctx context.Context, req ExtractionRequest) ([]ExtractedEvent, error) {
	names := "(unknown)"
	if len(req.ParticipantNames) > 0 {
		names = strings.Join(req.ParticipantNames, ", ")
	}

	resp, err := x.gen.Generate(ctx, domain.GenerateRequest{
		Name: "calendar_extraction",
		Prompt: fmt.Sprintf(calendarPrompt,
			req.ReferenceDate.UTC().Format(time.RFC3339),
			names,
			FormatHistory(req.Previous),
			FormatCurrent(req.Current),
		),
		Schema: calendarSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar extraction: %w", err)
	}

	var out struct {
		Events []ExtractedEvent `json:"events"`
	}
	if err := resp.Decode(&out); err != nil {
		if errors.Is(err, domain.ErrNoOutput) {
			return nil, nil
		}
		return nil, fmt.Errorf("calendar extraction decode: %w", err)
	}
	return out.Events, nil
}

// CalendarHandler turns scheduling talk into calendar events on the chat's
// calendar and on every participant's calendar.
type CalendarHandler struct {
	extractor EventExtractor
	store     domain.ProjectionStore
	now       func() time.Time
}

func NewCalendarHandler(extractor EventExtractor, store domain.ProjectionStore) *CalendarHandler {
	return &CalendarHandler{
		extractor: extractor,
		store:     store,
		now:       time.Now,
	}
}

func (h *CalendarHandler) Name() domain.ActionName { return domain.ActionCalendar }

func (h *CalendarHandler) Description() string {
	return "Extract calendar events. Select it when the message proposes, confirms or changes a " +
		"meeting, call, appointment, deadline or any plan tied to a date, weekday or time " +
		"(tomorrow, next week, Friday at 3pm, 10/12)."
}

// Run never returns an error: failures are reported in the result.
func (h *CalendarHandler) Run(ctx context.Context, ec *domain.EnrichedContext, _ domain.ActionMetadata) (domain.ActionResult, error) {
	log := observability.LoggerFromContext(ctx).With().
		Str("action", string(domain.ActionCalendar)).
		Str("message_id", string(ec.CurrentMessage.MessageID)).
		Logger()

	if strings.TrimSpace(ec.CurrentMessage.Text) == "" {
		return domain.ActionResult{
			ActionName: domain.ActionCalendar,
			Success:    true,
			Data:       map[string]any{"skipped": true, "reason": "no text"},
		}, nil
	}

	names := ec.ParticipantNames()
	extracted, err := h.extractor.ExtractEvents(ctx, ExtractionRequest{
		Previous:         ec.PreviousMessages,
		Current:          ec.CurrentMessage.MessageContext,
		ParticipantNames: names,
		ReferenceDate:    ec.CurrentMessage.CreatedAt,
	})
	if err != nil {
		log.Error().Err(err).Msg("event extraction failed")
		return domain.FailedResult(domain.ActionCalendar, err.Error()), nil
	}

	events := h.buildEvents(ec, extracted, names)
	if len(events) == 0 {
		return domain.ActionResult{
			ActionName: domain.ActionCalendar,
			Success:    true,
			Data:       map[string]any{"eventsFound": 0},
		}, nil
	}

	if err := h.write(ctx, ec, events); err != nil {
		log.Error().Err(err).Msg("calendar write failed")
		return domain.FailedResult(domain.ActionCalendar, err.Error()), nil
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	log.Info().Int("events", len(events)).Int("users", len(ec.Participants)).Msg("calendar events recorded")
	return domain.ActionResult{
		ActionName: domain.ActionCalendar,
		Success:    true,
		Data: map[string]any{
			"eventsFound":  len(events),
			"eventIds":     ids,
			"usersUpdated": len(ec.Participants),
		},
	}, nil
}

func (h *CalendarHandler) buildEvents(ec *domain.EnrichedContext, extracted []ExtractedEvent, names []string) []domain.CalendarEvent {
	events := make([]domain.CalendarEvent, 0, len(extracted))
	for i, x := range extracted {
		title := strings.TrimSpace(x.Title)
		if title == "" {
			continue
		}

		participants := x.Participants
		if len(participants) == 0 {
			participants = append([]string(nil), names...)
		}

		events = append(events, domain.CalendarEvent{
			ID:            fmt.Sprintf("event-%s-%d", ec.CurrentMessage.MessageID, i),
			Title:         title,
			Description:   strings.TrimSpace(x.Description),
			Date:          h.parseDate(x.Date),
			Time:          strings.TrimSpace(x.Time),
			Participants:  participants,
			ExtractedFrom: ec.CurrentMessage.MessageID,
		})
	}
	return events
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate resolves an ISO date to epoch milliseconds, falling back to now.
func (h *CalendarHandler) parseDate(s string) int64 {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return h.now().UnixMilli()
}

// write unions the whole batch into the chat calendar, then into every
// participant's calendar with the chat id attached.
func (h *CalendarHandler) write(ctx context.Context, ec *domain.EnrichedContext, events []domain.CalendarEvent) error {
	chatID := ec.ChatMetadata.ChatID
	if err := h.store.AppendChatEvents(ctx, chatID, events...); err != nil {
		return fmt.Errorf("append chat events: %w", err)
	}

	userEvents := make([]domain.CalendarEvent, len(events))
	for i, e := range events {
		e.ChatID = chatID
		userEvents[i] = e
	}

	var g errgroup.Group
	for _, participant := range ec.Participants {
		userID := participant.UserID
		g.Go(func() error {
			if err := h.store.AppendUserEvents(ctx, userID, userEvents...); err != nil {
				return fmt.Errorf("append user events %s: %w", userID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
