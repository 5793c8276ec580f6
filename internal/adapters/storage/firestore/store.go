package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/chatflow/internal/domain"
)

const (
	colUsers          = "users"
	colMessages       = "messages"
	colChatPriorities = "chatPriorities"
	colUserPriorities = "userPriorities"
	colChatCalendar   = "chatCalendar"
	colUserCalendar   = "userCalendar"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (CHATFLOW_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) chatDoc(collection domain.CollectionType, id domain.ChatID) *firestore.DocumentRef {
	return s.client.Collection(string(collection)).Doc(string(id))
}

func (s *Store) messagesCol(collection domain.CollectionType, chatID domain.ChatID) *firestore.CollectionRef {
	return s.chatDoc(collection, chatID).Collection(colMessages)
}

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.client.Collection(colUsers).Doc(string(id))
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// getInto reads one document into dst, mapping NotFound to domain.ErrNotFound.
func getInto(ctx context.Context, ref *firestore.DocumentRef, dst any) error {
	snap, err := ref.Get(ctx)
	if err != nil {
		if notFound(err) {
			return fmt.Errorf("%s: %w", ref.Path, domain.ErrNotFound)
		}
		return fmt.Errorf("firestore get %s: %w", ref.Path, err)
	}
	if err := snap.DataTo(dst); err != nil {
		return fmt.Errorf("firestore decode %s: %w", ref.Path, err)
	}
	return nil
}

// unionMerge appends elems to the array field of a projection document,
// creating it when absent. Nothing is read first.
func (s *Store) unionMerge(ctx context.Context, ref *firestore.DocumentRef, keyField, key, arrayField string, elems []interface{}) error {
	if len(elems) == 0 {
		return nil
	}
	_, err := ref.Set(ctx, map[string]interface{}{
		keyField:      key,
		arrayField:    firestore.ArrayUnion(elems...),
		"lastUpdated": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("firestore union %s.%s: %w", ref.Path, arrayField, err)
	}
	return nil
}

// ─────────────────────────────────────────
// ChatReader implementation
// ─────────────────────────────────────────

func (s *Store) GetChat(ctx context.Context, collection domain.CollectionType, id domain.ChatID) (*domain.Chat, error) {
	var doc chatDoc
	if err := getInto(ctx, s.chatDoc(collection, id), &doc); err != nil {
		return nil, err
	}
	return doc.toDomain(collection, id), nil
}

func (s *Store) GetUserProfile(ctx context.Context, id domain.UserID) (*domain.UserProfile, error) {
	var doc userDoc
	if err := getInto(ctx, s.userDoc(id), &doc); err != nil {
		return nil, err
	}
	return &domain.UserProfile{ID: id, DisplayName: doc.DisplayName, Email: doc.Email}, nil
}

func (s *Store) ListMessagesBefore(
	ctx context.Context,
	collection domain.CollectionType,
	chatID domain.ChatID,
	before time.Time,
	limit int,
) ([]*domain.Message, error) {
	q := s.messagesCol(collection, chatID).
		Where("createdAt", "<", before.UnixMilli()).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Message
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListMessagesBefore: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, doc.toDomain(collection, chatID, domain.MessageID(snap.Ref.ID)))
	}
	return out, nil
}

// ─────────────────────────────────────────
// ChatWriter implementation
// ─────────────────────────────────────────

func (s *Store) SaveUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	doc := userDoc{DisplayName: profile.DisplayName, Email: profile.Email}
	if _, err := s.userDoc(profile.ID).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore SaveUserProfile: %w", err)
	}
	return nil
}

func (s *Store) SaveChat(ctx context.Context, chat *domain.Chat) error {
	if _, err := s.chatDoc(chat.Collection, chat.ID).Set(ctx, chatToDoc(chat), firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore SaveChat: %w", err)
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *domain.Message) error {
	ref := s.messagesCol(msg.Collection, msg.ChatID).Doc(string(msg.ID))
	if _, err := ref.Set(ctx, messageToDoc(msg)); err != nil {
		return fmt.Errorf("firestore SaveMessage: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// ProjectionStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendChatPriorities(ctx context.Context, chatID domain.ChatID, items ...domain.Priority) error {
	elems := make([]interface{}, 0, len(items))
	for _, p := range items {
		elems = append(elems, priorityToDoc(p, ""))
	}
	ref := s.client.Collection(colChatPriorities).Doc(string(chatID))
	return s.unionMerge(ctx, ref, "chatId", string(chatID), "priorities", elems)
}

func (s *Store) AppendUserPriorities(ctx context.Context, userID domain.UserID, items ...domain.UserPriority) error {
	elems := make([]interface{}, 0, len(items))
	for _, p := range items {
		elems = append(elems, priorityToDoc(p.Priority, p.ChatID))
	}
	ref := s.client.Collection(colUserPriorities).Doc(string(userID))
	return s.unionMerge(ctx, ref, "userId", string(userID), "priorities", elems)
}

func (s *Store) AppendChatEvents(ctx context.Context, chatID domain.ChatID, events ...domain.CalendarEvent) error {
	ref := s.client.Collection(colChatCalendar).Doc(string(chatID))
	return s.unionMerge(ctx, ref, "chatId", string(chatID), "events", eventsToDocs(events))
}

func (s *Store) AppendUserEvents(ctx context.Context, userID domain.UserID, events ...domain.CalendarEvent) error {
	ref := s.client.Collection(colUserCalendar).Doc(string(userID))
	return s.unionMerge(ctx, ref, "userId", string(userID), "events", eventsToDocs(events))
}

// ─────────────────────────────────────────
// ProjectionReader implementation
// ─────────────────────────────────────────

func (s *Store) GetChatPriorities(ctx context.Context, chatID domain.ChatID) (*domain.ChatPriorities, error) {
	var doc priorityListDoc
	if err := getInto(ctx, s.client.Collection(colChatPriorities).Doc(string(chatID)), &doc); err != nil {
		return nil, err
	}
	out := &domain.ChatPriorities{ChatID: chatID, LastUpdated: doc.LastUpdated, Priorities: []domain.Priority{}}
	for _, p := range doc.Priorities {
		out.Priorities = append(out.Priorities, p.toDomain())
	}
	return out, nil
}

func (s *Store) GetUserPriorities(ctx context.Context, userID domain.UserID) (*domain.UserPriorities, error) {
	var doc priorityListDoc
	if err := getInto(ctx, s.client.Collection(colUserPriorities).Doc(string(userID)), &doc); err != nil {
		return nil, err
	}
	out := &domain.UserPriorities{UserID: userID, LastUpdated: doc.LastUpdated, Priorities: []domain.UserPriority{}}
	for _, p := range doc.Priorities {
		out.Priorities = append(out.Priorities, domain.UserPriority{Priority: p.toDomain(), ChatID: domain.ChatID(p.ChatID)})
	}
	return out, nil
}

func (s *Store) GetChatCalendar(ctx context.Context, chatID domain.ChatID) (*domain.ChatCalendar, error) {
	var doc eventListDoc
	if err := getInto(ctx, s.client.Collection(colChatCalendar).Doc(string(chatID)), &doc); err != nil {
		return nil, err
	}
	return &domain.ChatCalendar{ChatID: chatID, LastUpdated: doc.LastUpdated, Events: docsToEvents(doc.Events)}, nil
}

func (s *Store) GetUserCalendar(ctx context.Context, userID domain.UserID) (*domain.UserCalendar, error) {
	var doc eventListDoc
	if err := getInto(ctx, s.client.Collection(colUserCalendar).Doc(string(userID)), &doc); err != nil {
		return nil, err
	}
	return &domain.UserCalendar{UserID: userID, LastUpdated: doc.LastUpdated, Events: docsToEvents(doc.Events)}, nil
}
