package domain

import "time"

// MessageContext is a snapshot of one historical message, used for prompting.
type MessageContext struct {
	SenderName string    `json:"senderName"`
	CreatedAt  time.Time `json:"createdAt"`
	Text       string    `json:"text"`
}

// CurrentMessageContext is the message that triggered the pipeline.
// MessageID is the join key for every record derived from it.
type CurrentMessageContext struct {
	MessageContext
	SenderID  UserID    `json:"senderId"`
	MessageID MessageID `json:"messageId"`
}

type ParticipantInfo struct {
	UserID UserID `json:"userId"`
	Name   string `json:"name"`
}

type ChatMetadata struct {
	ChatID         ChatID         `json:"chatId"`
	CollectionType CollectionType `json:"collectionType"`
	IsGroup        bool           `json:"isGroup"`
}

// EnrichedContext is built once per message and passed read-only through
// routing and every action. Actions run concurrently against the same value,
// so nothing downstream of the fetcher may mutate it.
type EnrichedContext struct {
	CurrentMessage   CurrentMessageContext `json:"currentMessage"`
	PreviousMessages []MessageContext      `json:"previousMessages"` // oldest first
	Participants     []ParticipantInfo     `json:"participants"`
	ChatMetadata     ChatMetadata          `json:"chatMetadata"`
}

// ParticipantNames returns the roster's display names in roster order.
func (c *EnrichedContext) ParticipantNames() []string {
	names := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		names = append(names, p.Name)
	}
	return names
}
