package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNoOutput is returned when a generation produced no structured output.
var ErrNoOutput = errors.New("model returned no structured output")

// Generator defines how the core application interacts with an LLM service.
// Implementations are unreliable by contract: callers must have a fallback
// value for every call.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest asks for one completion. When Schema is set the model is
// asked for JSON matching it and the result lands in GenerateResponse.Output.
type GenerateRequest struct {
	Name   string // short identifier of the call site, e.g. "action_plan"
	Model  string // optional override of the provider's default model
	Prompt string
	Schema *Schema
}

type GenerateResponse struct {
	Output json.RawMessage
	Text   string
}

// Decode unmarshals the structured output into v.
func (r *GenerateResponse) Decode(v any) error {
	if r == nil || len(r.Output) == 0 {
		return ErrNoOutput
	}
	return json.Unmarshal(r.Output, v)
}

// ChatReader is the read side of chats, groups, users and messages.
type ChatReader interface {
	GetChat(ctx context.Context, collection CollectionType, id ChatID) (*Chat, error)
	GetUserProfile(ctx context.Context, id UserID) (*UserProfile, error)
	// ListMessagesBefore returns messages created strictly before `before`,
	// newest first, at most limit of them.
	ListMessagesBefore(ctx context.Context, collection CollectionType, chatID ChatID, before time.Time, limit int) ([]*Message, error)
}

// ChatWriter seeds chat data for the local backends.
type ChatWriter interface {
	SaveUserProfile(ctx context.Context, profile *UserProfile) error
	SaveChat(ctx context.Context, chat *Chat) error
	SaveMessage(ctx context.Context, msg *Message) error
}

// ProjectionStore appends to the AI aggregate documents.
//
// Every method is a merge + array-union: the document is created if absent,
// otherwise the elements are appended without reading the current array.
// Writes from concurrent handlers and overlapping messages therefore commute.
// Any new method added here must keep that additive property. Elements are
// not de-duplicated.
type ProjectionStore interface {
	AppendChatPriorities(ctx context.Context, chatID ChatID, items ...Priority) error
	AppendUserPriorities(ctx context.Context, userID UserID, items ...UserPriority) error
	AppendChatEvents(ctx context.Context, chatID ChatID, events ...CalendarEvent) error
	AppendUserEvents(ctx context.Context, userID UserID, events ...CalendarEvent) error
}

// ProjectionReader returns ErrNotFound for aggregates never written.
type ProjectionReader interface {
	GetChatPriorities(ctx context.Context, chatID ChatID) (*ChatPriorities, error)
	GetUserPriorities(ctx context.Context, userID UserID) (*UserPriorities, error)
	GetChatCalendar(ctx context.Context, chatID ChatID) (*ChatCalendar, error)
	GetUserCalendar(ctx context.Context, userID UserID) (*UserCalendar, error)
}
