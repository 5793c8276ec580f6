package projections

import (
	"context"
	"errors"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// Service holds the logic of reading the AI aggregates.
type Service struct {
	store domain.ProjectionReader
}

// NewService creates a projections service from a ProjectionReader.
func NewService(store domain.ProjectionReader) *Service {
	return &Service{store: store}
}

// ChatPriorities returns the chat's priorities. A chat that never had one
// yields an empty aggregate, not an error.
func (s *Service) ChatPriorities(ctx context.Context, chatID domain.ChatID) (*domain.ChatPriorities, error) {
	doc, err := s.store.GetChatPriorities(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ChatPriorities{ChatID: chatID, Priorities: []domain.Priority{}}, nil
	}
	return doc, err
}

func (s *Service) UserPriorities(ctx context.Context, userID domain.UserID) (*domain.UserPriorities, error) {
	doc, err := s.store.GetUserPriorities(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UserPriorities{UserID: userID, Priorities: []domain.UserPriority{}}, nil
	}
	return doc, err
}

func (s *Service) ChatCalendar(ctx context.Context, chatID domain.ChatID) (*domain.ChatCalendar, error) {
	doc, err := s.store.GetChatCalendar(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.ChatCalendar{ChatID: chatID, Events: []domain.CalendarEvent{}}, nil
	}
	return doc, err
}

func (s *Service) UserCalendar(ctx context.Context, userID domain.UserID) (*domain.UserCalendar, error) {
	doc, err := s.store.GetUserCalendar(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UserCalendar{UserID: userID, Events: []domain.CalendarEvent{}}, nil
	}
	return doc, err
}
