package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PabloGalante/chatflow/internal/domain"
)

type chatKey struct {
	collection domain.CollectionType
	id         domain.ChatID
}

// Store is an in-memory implementation of every storage port.
// It is NOT persistent and is only suitable for development / local mode.
// Projection appends follow the same append-without-dedup semantics as the
// Firestore array-union writes.
type Store struct {
	mu       sync.RWMutex
	users    map[domain.UserID]*domain.UserProfile
	chats    map[chatKey]*domain.Chat
	messages map[chatKey][]*domain.Message

	chatPriorities map[domain.ChatID]*domain.ChatPriorities
	userPriorities map[domain.UserID]*domain.UserPriorities
	chatCalendars  map[domain.ChatID]*domain.ChatCalendar
	userCalendars  map[domain.UserID]*domain.UserCalendar

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:          make(map[domain.UserID]*domain.UserProfile),
		chats:          make(map[chatKey]*domain.Chat),
		messages:       make(map[chatKey][]*domain.Message),
		chatPriorities: make(map[domain.ChatID]*domain.ChatPriorities),
		userPriorities: make(map[domain.UserID]*domain.UserPriorities),
		chatCalendars:  make(map[domain.ChatID]*domain.ChatCalendar),
		userCalendars:  make(map[domain.UserID]*domain.UserCalendar),
		now:            time.Now,
	}
}

// ─────────────────────────────────────────
// ChatWriter
// ─────────────────────────────────────────

func (s *Store) SaveUserProfile(_ context.Context, profile *domain.UserProfile) error {
	if profile == nil || profile.ID == "" {
		return fmt.Errorf("memory SaveUserProfile: missing user id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *profile
	s.users[p.ID] = &p
	return nil
}

func (s *Store) SaveChat(_ context.Context, chat *domain.Chat) error {
	if chat == nil || chat.ID == "" || !chat.Collection.Valid() {
		return fmt.Errorf("memory SaveChat: missing id or invalid collection")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *chat
	c.MemberIDs = append([]domain.UserID(nil), chat.MemberIDs...)
	s.chats[chatKey{c.Collection, c.ID}] = &c
	return nil
}

func (s *Store) SaveMessage(_ context.Context, msg *domain.Message) error {
	if msg == nil || msg.ID == "" || msg.ChatID == "" || !msg.Collection.Valid() {
		return fmt.Errorf("memory SaveMessage: missing id, chat id or collection")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	key := chatKey{m.Collection, m.ChatID}
	s.messages[key] = append(s.messages[key], &m)
	return nil
}

// ─────────────────────────────────────────
// ChatReader
// ─────────────────────────────────────────

func (s *Store) GetChat(_ context.Context, collection domain.CollectionType, id domain.ChatID) (*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatKey{collection, id}]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	out := *c
	out.MemberIDs = append([]domain.UserID(nil), c.MemberIDs...)
	return &out, nil
}

func (s *Store) GetUserProfile(_ context.Context, id domain.UserID) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("users/%s: %w", id, domain.ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (s *Store) ListMessagesBefore(
	_ context.Context,
	collection domain.CollectionType,
	chatID domain.ChatID,
	before time.Time,
	limit int,
) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Message
	for _, m := range s.messages[chatKey{collection, chatID}] {
		if m.CreatedAt.Before(before) {
			cp := *m
			out = append(out, &cp)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ─────────────────────────────────────────
// ProjectionStore
// ─────────────────────────────────────────

func (s *Store) AppendChatPriorities(_ context.Context, chatID domain.ChatID, items ...domain.Priority) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.chatPriorities[chatID]
	if !ok {
		doc = &domain.ChatPriorities{ChatID: chatID}
		s.chatPriorities[chatID] = doc
	}
	doc.Priorities = append(doc.Priorities, items...)
	doc.LastUpdated = s.now()
	return nil
}

func (s *Store) AppendUserPriorities(_ context.Context, userID domain.UserID, items ...domain.UserPriority) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.userPriorities[userID]
	if !ok {
		doc = &domain.UserPriorities{UserID: userID}
		s.userPriorities[userID] = doc
	}
	doc.Priorities = append(doc.Priorities, items...)
	doc.LastUpdated = s.now()
	return nil
}

func (s *Store) AppendChatEvents(_ context.Context, chatID domain.ChatID, events ...domain.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.chatCalendars[chatID]
	if !ok {
		doc = &domain.ChatCalendar{ChatID: chatID}
		s.chatCalendars[chatID] = doc
	}
	doc.Events = append(doc.Events, copyEvents(events)...)
	doc.LastUpdated = s.now()
	return nil
}

func (s *Store) AppendUserEvents(_ context.Context, userID domain.UserID, events ...domain.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.userCalendars[userID]
	if !ok {
		doc = &domain.UserCalendar{UserID: userID}
		s.userCalendars[userID] = doc
	}
	doc.Events = append(doc.Events, copyEvents(events)...)
	doc.LastUpdated = s.now()
	return nil
}

// ─────────────────────────────────────────
// ProjectionReader
// ─────────────────────────────────────────

func (s *Store) GetChatPriorities(_ context.Context, chatID domain.ChatID) (*domain.ChatPriorities, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.chatPriorities[chatID]
	if !ok {
		return nil, fmt.Errorf("chatPriorities/%s: %w", chatID, domain.ErrNotFound)
	}
	out := *doc
	out.Priorities = append([]domain.Priority(nil), doc.Priorities...)
	return &out, nil
}

func (s *Store) GetUserPriorities(_ context.Context, userID domain.UserID) (*domain.UserPriorities, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.userPriorities[userID]
	if !ok {
		return nil, fmt.Errorf("userPriorities/%s: %w", userID, domain.ErrNotFound)
	}
	out := *doc
	out.Priorities = append([]domain.UserPriority(nil), doc.Priorities...)
	return &out, nil
}

func (s *Store) GetChatCalendar(_ context.Context, chatID domain.ChatID) (*domain.ChatCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.chatCalendars[chatID]
	if !ok {
		return nil, fmt.Errorf("chatCalendar/%s: %w", chatID, domain.ErrNotFound)
	}
	out := *doc
	out.Events = copyEvents(doc.Events)
	return &out, nil
}

func (s *Store) GetUserCalendar(_ context.Context, userID domain.UserID) (*domain.UserCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.userCalendars[userID]
	if !ok {
		return nil, fmt.Errorf("userCalendar/%s: %w", userID, domain.ErrNotFound)
	}
	out := *doc
	out.Events = copyEvents(doc.Events)
	return &out, nil
}

func copyEvents(in []domain.CalendarEvent) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, len(in))
	for i, e := range in {
		e.Participants = append([]string(nil), e.Participants...)
		out[i] = e
	}
	return out
}
