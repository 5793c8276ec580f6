package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// Projection documents are stored as an append-only log: every appended
// element is one row, and a document is the ordered list of its rows.
// Appends never read, so concurrent writers commute like array-union writes.
const (
	logChatPriorities = "chatPriorities"
	logUserPriorities = "userPriorities"
	logChatCalendar   = "chatCalendar"
	logUserCalendar   = "userCalendar"
)

// appendLog inserts one row per element in a single transaction.
func appendLog[T any](ctx context.Context, s *Store, collection, docID string, items []T) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite append %s/%s: %w", collection, docID, err)
	}
	defer tx.Rollback()

	now := s.now().UnixMilli()
	for _, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode %s element: %w", collection, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO projection_log (collection, doc_id, payload, appended_at) VALUES (?, ?, ?, ?)`,
			collection, docID, string(payload), now,
		); err != nil {
			return fmt.Errorf("sqlite append %s/%s: %w", collection, docID, err)
		}
	}
	return tx.Commit()
}

// readLog returns the document's elements in append order and the time of
// the last append. Documents with no rows are ErrNotFound.
func readLog[T any](ctx context.Context, s *Store, collection, docID string) ([]T, time.Time, error) {
	rows, err := s.sql.QueryContext(ctx,
		`SELECT payload, appended_at FROM projection_log WHERE collection = ? AND doc_id = ? ORDER BY seq`,
		collection, docID,
	)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("sqlite read %s/%s: %w", collection, docID, err)
	}
	defer rows.Close()

	out := []T{}
	var last int64
	for rows.Next() {
		var payload string
		var at int64
		if err := rows.Scan(&payload, &at); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan %s row: %w", collection, err)
		}
		var item T
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode %s row: %w", collection, err)
		}
		out = append(out, item)
		if at > last {
			last = at
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	if len(out) == 0 {
		return nil, time.Time{}, fmt.Errorf("%s/%s: %w", collection, docID, domain.ErrNotFound)
	}
	return out, domain.UnixMillis(last), nil
}

// ─────────────────────────────────────────
// ProjectionStore
// ─────────────────────────────────────────

func (s *Store) AppendChatPriorities(ctx context.Context, chatID domain.ChatID, items ...domain.Priority) error {
	return appendLog(ctx, s, logChatPriorities, string(chatID), items)
}

func (s *Store) AppendUserPriorities(ctx context.Context, userID domain.UserID, items ...domain.UserPriority) error {
	return appendLog(ctx, s, logUserPriorities, string(userID), items)
}

func (s *Store) AppendChatEvents(ctx context.Context, chatID domain.ChatID, events ...domain.CalendarEvent) error {
	return appendLog(ctx, s, logChatCalendar, string(chatID), events)
}

func (s *Store) AppendUserEvents(ctx context.Context, userID domain.UserID, events ...domain.CalendarEvent) error {
	return appendLog(ctx, s, logUserCalendar, string(userID), events)
}

// ─────────────────────────────────────────
// ProjectionReader
// ─────────────────────────────────────────

func (s *Store) GetChatPriorities(ctx context.Context, chatID domain.ChatID) (*domain.ChatPriorities, error) {
	items, last, err := readLog[domain.Priority](ctx, s, logChatPriorities, string(chatID))
	if err != nil {
		return nil, err
	}
	return &domain.ChatPriorities{ChatID: chatID, Priorities: items, LastUpdated: last}, nil
}

func (s *Store) GetUserPriorities(ctx context.Context, userID domain.UserID) (*domain.UserPriorities, error) {
	items, last, err := readLog[domain.UserPriority](ctx, s, logUserPriorities, string(userID))
	if err != nil {
		return nil, err
	}
	return &domain.UserPriorities{UserID: userID, Priorities: items, LastUpdated: last}, nil
}

func (s *Store) GetChatCalendar(ctx context.Context, chatID domain.ChatID) (*domain.ChatCalendar, error) {
	events, last, err := readLog[domain.CalendarEvent](ctx, s, logChatCalendar, string(chatID))
	if err != nil {
		return nil, err
	}
	return &domain.ChatCalendar{ChatID: chatID, Events: events, LastUpdated: last}, nil
}

func (s *Store) GetUserCalendar(ctx context.Context, userID domain.UserID) (*domain.UserCalendar, error) {
	events, last, err := readLog[domain.CalendarEvent](ctx, s, logUserCalendar, string(userID))
	if err != nil {
		return nil, err
	}
	return &domain.UserCalendar{UserID: userID, Events: events, LastUpdated: last}, nil
}
