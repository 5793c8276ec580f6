package domain

import "time"

// UserProfile is the subset of a users/{uid} document the pipeline reads.
type UserProfile struct {
	ID          UserID `json:"id" yaml:"id"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName"`
	Email       string `json:"email,omitempty" yaml:"email"`
}

// Chat is a chats/{id} or groups/{id} document. MemberIDs holds the
// "participants" array for chats and the "members" array for groups.
type Chat struct {
	ID         ChatID
	Collection CollectionType
	MemberIDs  []UserID
}

// Message is one document of a chat's messages sub-collection.
type Message struct {
	ID         MessageID
	ChatID     ChatID
	Collection CollectionType
	SenderID   UserID
	Text       string
	ImageURL   string
	Status     string
	CreatedAt  time.Time
}

// MessageData is the message document carried by a new-message trigger.
// CreatedAt is milliseconds since the epoch.
type MessageData struct {
	SenderID  UserID `json:"senderId"`
	Text      string `json:"text,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	Status    string `json:"status,omitempty"`
}

// TriggerEvent arrives once per newly created message in a chat or group.
type TriggerEvent struct {
	MessageData    MessageData    `json:"messageData"`
	MessageID      MessageID      `json:"messageId"`
	ChatID         ChatID         `json:"chatId"`
	CollectionType CollectionType `json:"collectionType"`
}

// TriggerFromMessage builds the event a store emits after saving m.
func TriggerFromMessage(m *Message) TriggerEvent {
	return TriggerEvent{
		MessageData: MessageData{
			SenderID:  m.SenderID,
			Text:      m.Text,
			ImageURL:  m.ImageURL,
			CreatedAt: m.CreatedAt.UnixMilli(),
			Status:    m.Status,
		},
		MessageID:      m.ID,
		ChatID:         m.ChatID,
		CollectionType: m.Collection,
	}
}
