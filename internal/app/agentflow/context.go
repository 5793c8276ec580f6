package agentflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// DefaultHistoryDepth is how many previous messages are fetched when the
// caller does not choose.
const DefaultHistoryDepth = 5

const unknownSender = "Unknown"

// ContextFetcher assembles the EnrichedContext for a new message. It only
// reads from the store.
type ContextFetcher struct {
	chats domain.ChatReader
}

func NewContextFetcher(chats domain.ChatReader) *ContextFetcher {
	return &ContextFetcher{chats: chats}
}

// FetchEnrichedContext fails when the parent chat or group does not exist.
// Missing user profiles never fail: senders fall back to "Unknown" and
// participants without a profile are left out of the roster.
func (f *ContextFetcher) FetchEnrichedContext(ctx context.Context, ev domain.TriggerEvent, historyDepth int) (*domain.EnrichedContext, error) {
	chat, err := f.chats.GetChat(ctx, ev.CollectionType, ev.ChatID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", ev.CollectionType, ev.ChatID, err)
	}

	names := newNameCache(f.chats)
	createdAt := domain.UnixMillis(ev.MessageData.CreatedAt)

	current := domain.CurrentMessageContext{
		MessageContext: domain.MessageContext{
			SenderName: names.resolve(ctx, ev.MessageData.SenderID),
			CreatedAt:  createdAt,
			Text:       ev.MessageData.Text,
		},
		SenderID:  ev.MessageData.SenderID,
		MessageID: ev.MessageID,
	}

	previous, err := f.history(ctx, ev, historyDepth, names)
	if err != nil {
		return nil, err
	}

	participants, err := f.participants(ctx, chat.MemberIDs)
	if err != nil {
		return nil, err
	}

	return &domain.EnrichedContext{
		CurrentMessage:   current,
		PreviousMessages: previous,
		Participants:     participants,
		ChatMetadata: domain.ChatMetadata{
			ChatID:         ev.ChatID,
			CollectionType: ev.CollectionType,
			IsGroup:        ev.CollectionType == domain.CollectionGroups,
		},
	}, nil
}

// history returns up to depth messages sent before the current one, oldest
// first. Messages without text are dropped after the limit is applied.
func (f *ContextFetcher) history(ctx context.Context, ev domain.TriggerEvent, depth int, names *nameCache) ([]domain.MessageContext, error) {
	if depth <= 0 {
		return []domain.MessageContext{}, nil
	}

	msgs, err := f.chats.ListMessagesBefore(ctx, ev.CollectionType, ev.ChatID, domain.UnixMillis(ev.MessageData.CreatedAt), depth)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}

	out := make([]domain.MessageContext, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out = append(out, domain.MessageContext{
			SenderName: names.resolve(ctx, m.SenderID),
			CreatedAt:  m.CreatedAt,
			Text:       m.Text,
		})
	}
	return out, nil
}

// participants looks up every member profile in parallel, keeping roster order.
func (f *ContextFetcher) participants(ctx context.Context, ids []domain.UserID) ([]domain.ParticipantInfo, error) {
	found := make([]*domain.ParticipantInfo, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			profile, err := f.chats.GetUserProfile(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("fetch participant %s: %w", id, err)
			}
			found[i] = &domain.ParticipantInfo{UserID: id, Name: displayName(profile)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ParticipantInfo, 0, len(ids))
	for _, p := range found {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, nil
}

// displayName picks displayName, then the local part of the email, then "Unknown".
func displayName(p *domain.UserProfile) string {
	if p == nil {
		return unknownSender
	}
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(strings.TrimSpace(p.Email), "@"); local != "" {
		return local
	}
	return unknownSender
}

// nameCache resolves each sender once per fetch.
type nameCache struct {
	chats domain.ChatReader
	mu    sync.Mutex
	names map[domain.UserID]string
}

func newNameCache(chats domain.ChatReader) *nameCache {
	return &nameCache{chats: chats, names: make(map[domain.UserID]string)}
}

func (c *nameCache) resolve(ctx context.Context, id domain.UserID) string {
	if id == "" {
		return unknownSender
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.names[id]; ok {
		return name
	}

	var name string
	profile, err := c.chats.GetUserProfile(ctx, id)
	if err != nil {
		name = unknownSender
	} else {
		name = displayName(profile)
	}
	c.names[id] = name
	return name
}
