package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// ─────────────────────────────────────────
// ChatReader
// ─────────────────────────────────────────

func (s *Store) GetChat(ctx context.Context, collection domain.CollectionType, id domain.ChatID) (*domain.Chat, error) {
	var members string
	err := s.sql.QueryRowContext(ctx,
		`SELECT members FROM chats WHERE collection = ? AND id = ?`, string(collection), string(id),
	).Scan(&members)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetChat: %w", err)
	}

	var ids []domain.UserID
	if err := json.Unmarshal([]byte(members), &ids); err != nil {
		return nil, fmt.Errorf("decode members of %s/%s: %w", collection, id, err)
	}
	return &domain.Chat{ID: id, Collection: collection, MemberIDs: ids}, nil
}

func (s *Store) GetUserProfile(ctx context.Context, id domain.UserID) (*domain.UserProfile, error) {
	p := domain.UserProfile{ID: id}
	err := s.sql.QueryRowContext(ctx,
		`SELECT display_name, email FROM users WHERE id = ?`, string(id),
	).Scan(&p.DisplayName, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("users/%s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetUserProfile: %w", err)
	}
	return &p, nil
}

func (s *Store) ListMessagesBefore(
	ctx context.Context,
	collection domain.CollectionType,
	chatID domain.ChatID,
	before time.Time,
	limit int,
) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	rows, err := s.sql.QueryContext(ctx,
		`SELECT id, sender_id, text, image_url, status, created_at
		 FROM messages
		 WHERE collection = ? AND chat_id = ? AND created_at < ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		string(collection), string(chatID), before.UnixMilli(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListMessagesBefore: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		m := &domain.Message{ChatID: chatID, Collection: collection}
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Text, &m.ImageURL, &m.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = domain.UnixMillis(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ─────────────────────────────────────────
// ChatWriter
// ─────────────────────────────────────────

func (s *Store) SaveUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO users (id, display_name, email) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, email = excluded.email`,
		string(profile.ID), profile.DisplayName, profile.Email,
	)
	if err != nil {
		return fmt.Errorf("sqlite SaveUserProfile: %w", err)
	}
	return nil
}

func (s *Store) SaveChat(ctx context.Context, chat *domain.Chat) error {
	members := chat.MemberIDs
	if members == nil {
		members = []domain.UserID{}
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}

	_, err = s.sql.ExecContext(ctx,
		`INSERT INTO chats (collection, id, members) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET members = excluded.members`,
		string(chat.Collection), string(chat.ID), string(raw),
	)
	if err != nil {
		return fmt.Errorf("sqlite SaveChat: %w", err)
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.sql.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (collection, chat_id, id, sender_id, text, image_url, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(msg.Collection), string(msg.ChatID), string(msg.ID), string(msg.SenderID),
		msg.Text, msg.ImageURL, msg.Status, msg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite SaveMessage: %w", err)
	}
	return nil
}
