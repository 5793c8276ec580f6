package actions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatflow/internal/adapters/llm"
	"github.com/PabloGalante/chatflow/internal/adapters/storage/memory"
	"github.com/PabloGalante/chatflow/internal/domain"
)

var msgTime = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func testContext(text string) *domain.EnrichedContext {
	return &domain.EnrichedContext{
		CurrentMessage: domain.CurrentMessageContext{
			MessageContext: domain.MessageContext{SenderName: "Ana", CreatedAt: msgTime, Text: text},
			SenderID:       "u1",
			MessageID:      "m1",
		},
		PreviousMessages: []domain.MessageContext{},
		Participants: []domain.ParticipantInfo{
			{UserID: "u1", Name: "Ana"},
			{UserID: "u2", Name: "Ben"},
		},
		ChatMetadata: domain.ChatMetadata{ChatID: "c1", CollectionType: domain.CollectionChats},
	}
}

// failingStore fails every user-level append.
type failingStore struct {
	*memory.Store
}

func (failingStore) AppendUserPriorities(context.Context, domain.UserID, ...domain.UserPriority) error {
	return errors.New("write refused")
}

func (failingStore) AppendUserEvents(context.Context, domain.UserID, ...domain.CalendarEvent) error {
	return errors.New("write refused")
}

// ─────────────────────────────────────────
// Registry
// ─────────────────────────────────────────

func TestRegistry_DefaultHandlers(t *testing.T) {
	r := NewDefaultRegistry(llm.NewMockClient(), memory.NewStore())

	assert.Equal(t, []domain.ActionName{domain.ActionPriority, domain.ActionCalendar}, r.Names())
	h, ok := r.Lookup(domain.ActionCalendar)
	require.True(t, ok)
	assert.Equal(t, domain.ActionCalendar, h.Name())
	assert.NotEmpty(t, h.Description())

	_, ok = r.Lookup("translate")
	assert.False(t, ok)
}

func TestRegistry_RegisterReplacesKeepsOrder(t *testing.T) {
	r := NewDefaultRegistry(llm.NewMockClient(), memory.NewStore())
	r.Register(HandlerFunc{ActionName: domain.ActionPriority, Describe: "replacement"})
	r.Register(HandlerFunc{ActionName: "summary", Describe: "summarize"})

	assert.Equal(t, []domain.ActionName{domain.ActionPriority, domain.ActionCalendar, "summary"}, r.Names())
	h, _ := r.Lookup(domain.ActionPriority)
	assert.Equal(t, "replacement", h.Description())
	assert.Len(t, r.Handlers(), 3)
}

// ─────────────────────────────────────────
// Prompt helpers
// ─────────────────────────────────────────

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "(no previous messages)", FormatHistory(nil))

	out := FormatHistory([]domain.MessageContext{
		{SenderName: "Ana", CreatedAt: msgTime, Text: "hi"},
		{SenderName: "Ben", CreatedAt: msgTime.Add(time.Minute), Text: "hey"},
	})
	assert.Equal(t, "1. [Ana] (2026-03-02T09:30:00Z): hi\n2. [Ben] (2026-03-02T09:31:00Z): hey", out)
}

// ─────────────────────────────────────────
// Priority handler
// ─────────────────────────────────────────

func TestPriorityHandler_SkipsBlankText(t *testing.T) {
	gen := llm.NewMockClient()
	h := NewPriorityHandler(NewAIPriorityDetector(gen), memory.NewStore())

	res, err := h.Run(context.Background(), testContext("   "), domain.ActionMetadata{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, true, res.Data["skipped"])
	assert.Empty(t, gen.Calls())
}

func TestPriorityHandler_NotPriorityWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := llm.NewMockClient().On("priority_detection", `{"isPriority":false}`)

	res, err := NewPriorityHandler(NewAIPriorityDetector(gen), store).Run(ctx, testContext("Thanks!"), domain.ActionMetadata{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, false, res.Data["isPriority"])

	_, err = store.GetChatPriorities(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriorityHandler_PriorityWithoutLevelIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := llm.NewMockClient().On("priority_detection", `{"isPriority":true,"level":"medium"}`)

	res, err := NewPriorityHandler(NewAIPriorityDetector(gen), store).Run(ctx, testContext("hmm"), domain.ActionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, false, res.Data["isPriority"])

	_, err = store.GetChatPriorities(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriorityHandler_DualProjection(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := llm.NewMockClient().On("priority_detection", `{"isPriority":true,"level":"urgent","reason":"production outage"}`)
	h := NewPriorityHandler(NewAIPriorityDetector(gen), store)
	h.now = func() time.Time { return msgTime }

	res, err := h.Run(ctx, testContext("URGENT: prod is down, need help ASAP"), domain.ActionMetadata{Priority: domain.PlanPriorityHigh})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "urgent", res.Data["level"])

	want := domain.Priority{MessageID: "m1", Level: domain.PriorityLevelUrgent, Reason: "production outage", Timestamp: msgTime}

	chat, err := store.GetChatPriorities(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Priority{want}, chat.Priorities)

	for _, uid := range []domain.UserID{"u1", "u2"} {
		up, err := store.GetUserPriorities(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, []domain.UserPriority{{Priority: want, ChatID: "c1"}}, up.Priorities)
	}

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "URGENT: prod is down")
}

func TestPriorityHandler_DefaultReason(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := llm.NewMockClient().On("priority_detection", `{"isPriority":true,"level":"high"}`)

	_, err := NewPriorityHandler(NewAIPriorityDetector(gen), store).Run(ctx, testContext("deadline is today"), domain.ActionMetadata{})
	require.NoError(t, err)

	chat, err := store.GetChatPriorities(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, chat.Priorities, 1)
	assert.Equal(t, "Priority detected", chat.Priorities[0].Reason)
}

func TestPriorityHandler_ErrorsBecomeFailedResults(t *testing.T) {
	t.Run("detector", func(t *testing.T) {
		gen := llm.NewMockClient().Fail("priority_detection", errors.New("quota exceeded"))
		res, err := NewPriorityHandler(NewAIPriorityDetector(gen), memory.NewStore()).
			Run(context.Background(), testContext("urgent"), domain.ActionMetadata{})

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "quota exceeded")
	})

	t.Run("user write", func(t *testing.T) {
		gen := llm.NewMockClient().On("priority_detection", `{"isPriority":true,"level":"high"}`)
		res, err := NewPriorityHandler(NewAIPriorityDetector(gen), failingStore{memory.NewStore()}).
			Run(context.Background(), testContext("urgent"), domain.ActionMetadata{})

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "write refused")
	})
}

// ─────────────────────────────────────────
// Calendar handler
// ─────────────────────────────────────────

func TestCalendarHandler_ExtractsAndBackfillsParticipants(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := llm.NewMockClient().On("calendar_extraction", `{"events":[
		{"title":"Sync","date":"2026-03-03T15:00:00Z","time":"3pm"},
		{"title":"Lunch","date":"2026-03-04","participants":["Ben"]}
	]}`)

	res, err := NewCalendarHandler(NewAIEventExtractor(gen), store).
		Run(ctx, testContext("Let's meet tomorrow at 3pm"), domain.ActionMetadata{})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Data["eventsFound"])

	chat, err := store.GetChatCalendar(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, chat.Events, 2)

	sync := chat.Events[0]
	assert.Equal(t, "event-m1-0", sync.ID)
	assert.Equal(t, "3pm", sync.Time)
	assert.Equal(t, time.Date(2026, 3, 3, 15, 0, 0, 0, time.UTC).UnixMilli(), sync.Date)
	assert.Equal(t, []string{"Ana", "Ben"}, sync.Participants)
	assert.Equal(t, domain.MessageID("m1"), sync.ExtractedFrom)
	assert.Empty(t, sync.ChatID)

	assert.Equal(t, "event-m1-1", chat.Events[1].ID)
	assert.Equal(t, []string{"Ben"}, chat.Events[1].Participants)

	for _, uid := range []domain.UserID{"u1", "u2"} {
		cal, err := store.GetUserCalendar(ctx, uid)
		require.NoError(t, err)
		require.Len(t, cal.Events, 2)
		for _, e := range cal.Events {
			assert.Equal(t, domain.ChatID("c1"), e.ChatID)
		}
	}

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "2026-03-02T09:30:00Z")
	assert.Contains(t, calls[0].Prompt, "Ana, Ben")
}

func TestCalendarHandler_UnparsableDateFallsBackToNow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gen := llm.NewMockClient().On("calendar_extraction", `{"events":[{"title":"Retro","date":"sometime next week"}]}`)

	h := NewCalendarHandler(NewAIEventExtractor(gen), store)
	h.now = func() time.Time { return now }

	res, err := h.Run(ctx, testContext("retro sometime next week"), domain.ActionMetadata{})
	require.NoError(t, err)
	require.True(t, res.Success)

	chat, err := store.GetChatCalendar(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), chat.Events[0].Date)
}

func TestCalendarHandler_IDsFollowExtractionIndex(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	gen := llm.NewMockClient().On("calendar_extraction", `{"events":[
		{"title":" ","date":"2026-03-03"},
		{"title":"Lunch","date":"2026-03-04"}
	]}`)

	res, err := NewCalendarHandler(NewAIEventExtractor(gen), store).
		Run(ctx, testContext("lunch on the 4th?"), domain.ActionMetadata{})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Data["eventsFound"])
	assert.Equal(t, []string{"event-m1-1"}, res.Data["eventIds"])

	chat, err := store.GetChatCalendar(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, chat.Events, 1)
	assert.Equal(t, "event-m1-1", chat.Events[0].ID)
}

func TestCalendarHandler_NoEvents(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	tests := []struct {
		name   string
		output string
	}{
		{"empty list", `{"events":[]}`},
		{"unscripted", ""},
		{"blank titles", `{"events":[{"title":"  ","date":"2026-03-03"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := llm.NewMockClient()
			if tt.output != "" {
				gen.On("calendar_extraction", tt.output)
			}

			res, err := NewCalendarHandler(NewAIEventExtractor(gen), store).Run(ctx, testContext("Thanks!"), domain.ActionMetadata{})
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, 0, res.Data["eventsFound"])
		})
	}

	_, err := store.GetChatCalendar(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCalendarHandler_SkipsImageOnlyMessage(t *testing.T) {
	gen := llm.NewMockClient()
	res, err := NewCalendarHandler(NewAIEventExtractor(gen), memory.NewStore()).
		Run(context.Background(), testContext(""), domain.ActionMetadata{})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, true, res.Data["skipped"])
	assert.Empty(t, gen.Calls())
}

func TestCalendarHandler_WriteFailure(t *testing.T) {
	gen := llm.NewMockClient().On("calendar_extraction", `{"events":[{"title":"Sync","date":"2026-03-03"}]}`)

	res, err := NewCalendarHandler(NewAIEventExtractor(gen), failingStore{memory.NewStore()}).
		Run(context.Background(), testContext("sync tomorrow"), domain.ActionMetadata{})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, strings.Contains(res.Error, "write refused"))
}
