package agentflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatflow/internal/adapters/storage/memory"
	"github.com/PabloGalante/chatflow/internal/domain"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// seedChat stores a chat with three members (one without a profile) and a
// short history.
func seedChat(t *testing.T, s *memory.Store, collection domain.CollectionType) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.SaveUserProfile(ctx, &domain.UserProfile{ID: "u1", DisplayName: "Ana"}))
	require.NoError(t, s.SaveUserProfile(ctx, &domain.UserProfile{ID: "u2", Email: "ben@example.com"}))
	require.NoError(t, s.SaveChat(ctx, &domain.Chat{ID: "c1", Collection: collection, MemberIDs: []domain.UserID{"u1", "u2", "ghost"}}))

	history := []struct {
		sender domain.UserID
		text   string
	}{
		{"u1", "morning"},
		{"u2", ""},
		{"ghost", "anyone there?"},
		{"u2", "yes"},
	}
	for i, m := range history {
		require.NoError(t, s.SaveMessage(ctx, &domain.Message{
			ID:         domain.MessageID("h" + string(rune('0'+i))),
			ChatID:     "c1",
			Collection: collection,
			SenderID:   m.sender,
			Text:       m.text,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func triggerAt(text string, at time.Time, collection domain.CollectionType) domain.TriggerEvent {
	return domain.TriggerEvent{
		MessageData:    domain.MessageData{SenderID: "u1", Text: text, CreatedAt: at.UnixMilli()},
		MessageID:      "m1",
		ChatID:         "c1",
		CollectionType: collection,
	}
}

func TestFetchEnrichedContext(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionGroups)

	ec, err := NewContextFetcher(s).FetchEnrichedContext(context.Background(), triggerAt("hi all", base.Add(time.Hour), domain.CollectionGroups), 5)
	require.NoError(t, err)

	assert.Equal(t, "Ana", ec.CurrentMessage.SenderName)
	assert.Equal(t, domain.MessageID("m1"), ec.CurrentMessage.MessageID)
	assert.Equal(t, base.Add(time.Hour), ec.CurrentMessage.CreatedAt)

	require.Len(t, ec.PreviousMessages, 3)
	assert.Equal(t, "morning", ec.PreviousMessages[0].Text)
	assert.Equal(t, "Unknown", ec.PreviousMessages[1].SenderName)
	assert.Equal(t, "ben", ec.PreviousMessages[2].SenderName)

	assert.Equal(t, []domain.ParticipantInfo{{UserID: "u1", Name: "Ana"}, {UserID: "u2", Name: "ben"}}, ec.Participants)
	assert.Equal(t, domain.ChatMetadata{ChatID: "c1", CollectionType: domain.CollectionGroups, IsGroup: true}, ec.ChatMetadata)
}

func TestFetchEnrichedContext_OnlyEarlierMessages(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	ec, err := NewContextFetcher(s).FetchEnrichedContext(context.Background(), triggerAt("hi", base.Add(90*time.Second), domain.CollectionChats), 5)
	require.NoError(t, err)

	require.Len(t, ec.PreviousMessages, 1)
	assert.Equal(t, "morning", ec.PreviousMessages[0].Text)
	assert.False(t, ec.ChatMetadata.IsGroup)
}

func TestFetchEnrichedContext_DepthLimitsBeforeFiltering(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	ec, err := NewContextFetcher(s).FetchEnrichedContext(context.Background(), triggerAt("hi", base.Add(time.Hour), domain.CollectionChats), 3)
	require.NoError(t, err)

	// the three newest are "", "anyone there?", "yes"; the empty one is dropped
	require.Len(t, ec.PreviousMessages, 2)
	assert.Equal(t, "anyone there?", ec.PreviousMessages[0].Text)
	assert.Equal(t, "yes", ec.PreviousMessages[1].Text)
}

func TestFetchEnrichedContext_ZeroDepth(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	ec, err := NewContextFetcher(s).FetchEnrichedContext(context.Background(), triggerAt("hi", base.Add(time.Hour), domain.CollectionChats), 0)
	require.NoError(t, err)
	assert.NotNil(t, ec.PreviousMessages)
	assert.Empty(t, ec.PreviousMessages)
}

func TestFetchEnrichedContext_MissingChat(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	_, err := NewContextFetcher(s).FetchEnrichedContext(context.Background(), triggerAt("hi", base, domain.CollectionGroups), 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// profileErrStore fails profile lookups with a non-NotFound error.
type profileErrStore struct {
	*memory.Store
}

func (profileErrStore) GetUserProfile(context.Context, domain.UserID) (*domain.UserProfile, error) {
	return nil, errors.New("backend unavailable")
}

func TestFetchEnrichedContext_ProfileBackendError(t *testing.T) {
	s := memory.NewStore()
	seedChat(t, s, domain.CollectionChats)

	_, err := NewContextFetcher(profileErrStore{s}).FetchEnrichedContext(context.Background(), triggerAt("hi", base.Add(time.Hour), domain.CollectionChats), 0)
	assert.ErrorContains(t, err, "backend unavailable")
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		profile *domain.UserProfile
		want    string
	}{
		{"display name", &domain.UserProfile{DisplayName: "Ana", Email: "a@x.io"}, "Ana"},
		{"email local part", &domain.UserProfile{Email: "ben@x.io"}, "ben"},
		{"blank display name", &domain.UserProfile{DisplayName: "  ", Email: "cy@x.io"}, "cy"},
		{"nothing", &domain.UserProfile{}, "Unknown"},
		{"nil", nil, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.profile))
		})
	}
}
