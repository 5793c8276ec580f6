package firestore

import (
	"time"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type userDoc struct {
	DisplayName string `firestore:"displayName,omitempty"`
	Email       string `firestore:"email,omitempty"`
}

// chatDoc covers both rosters: chats use "participants", groups "members".
type chatDoc struct {
	Participants []string `firestore:"participants,omitempty"`
	Members      []string `firestore:"members,omitempty"`
}

// messageDoc.CreatedAt is milliseconds since the epoch, the same number the
// trigger payload carries.
type messageDoc struct {
	SenderID  string `firestore:"senderId"`
	Text      string `firestore:"text,omitempty"`
	ImageURL  string `firestore:"imageUrl,omitempty"`
	Status    string `firestore:"status,omitempty"`
	CreatedAt int64  `firestore:"createdAt"`
}

type priorityDoc struct {
	MessageID string    `firestore:"messageId"`
	Level     string    `firestore:"level"`
	Reason    string    `firestore:"reason"`
	Timestamp time.Time `firestore:"timestamp"`
	ChatID    string    `firestore:"chatId,omitempty"`
}

type priorityListDoc struct {
	Priorities  []priorityDoc `firestore:"priorities"`
	LastUpdated time.Time     `firestore:"lastUpdated"`
}

type eventDoc struct {
	ID            string   `firestore:"id"`
	Title         string   `firestore:"title"`
	Description   string   `firestore:"description,omitempty"`
	Date          int64    `firestore:"date"`
	Time          string   `firestore:"time,omitempty"`
	Participants  []string `firestore:"participants,omitempty"`
	ExtractedFrom string   `firestore:"extractedFrom"`
	ChatID        string   `firestore:"chatId,omitempty"`
}

type eventListDoc struct {
	Events      []eventDoc `firestore:"events"`
	LastUpdated time.Time  `firestore:"lastUpdated"`
}

func (d chatDoc) toDomain(collection domain.CollectionType, id domain.ChatID) *domain.Chat {
	ids := d.Participants
	if collection == domain.CollectionGroups {
		ids = d.Members
	}
	members := make([]domain.UserID, 0, len(ids))
	for _, m := range ids {
		members = append(members, domain.UserID(m))
	}
	return &domain.Chat{ID: id, Collection: collection, MemberIDs: members}
}

func chatToDoc(c *domain.Chat) map[string]interface{} {
	ids := make([]string, 0, len(c.MemberIDs))
	for _, m := range c.MemberIDs {
		ids = append(ids, string(m))
	}
	field := "participants"
	if c.Collection == domain.CollectionGroups {
		field = "members"
	}
	return map[string]interface{}{field: ids}
}

func (d messageDoc) toDomain(collection domain.CollectionType, chatID domain.ChatID, id domain.MessageID) *domain.Message {
	return &domain.Message{
		ID:         id,
		ChatID:     chatID,
		Collection: collection,
		SenderID:   domain.UserID(d.SenderID),
		Text:       d.Text,
		ImageURL:   d.ImageURL,
		Status:     d.Status,
		CreatedAt:  domain.UnixMillis(d.CreatedAt),
	}
}

func messageToDoc(m *domain.Message) messageDoc {
	return messageDoc{
		SenderID:  string(m.SenderID),
		Text:      m.Text,
		ImageURL:  m.ImageURL,
		Status:    m.Status,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

func priorityToDoc(p domain.Priority, chatID domain.ChatID) priorityDoc {
	return priorityDoc{
		MessageID: string(p.MessageID),
		Level:     string(p.Level),
		Reason:    p.Reason,
		Timestamp: p.Timestamp,
		ChatID:    string(chatID),
	}
}

func (d priorityDoc) toDomain() domain.Priority {
	return domain.Priority{
		MessageID: domain.MessageID(d.MessageID),
		Level:     domain.PriorityLevel(d.Level),
		Reason:    d.Reason,
		Timestamp: d.Timestamp,
	}
}

func eventsToDocs(events []domain.CalendarEvent) []interface{} {
	out := make([]interface{}, 0, len(events))
	for _, e := range events {
		out = append(out, eventDoc{
			ID:            e.ID,
			Title:         e.Title,
			Description:   e.Description,
			Date:          e.Date,
			Time:          e.Time,
			Participants:  e.Participants,
			ExtractedFrom: string(e.ExtractedFrom),
			ChatID:        string(e.ChatID),
		})
	}
	return out
}

func docsToEvents(docs []eventDoc) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.CalendarEvent{
			ID:            d.ID,
			Title:         d.Title,
			Description:   d.Description,
			Date:          d.Date,
			Time:          d.Time,
			Participants:  d.Participants,
			ExtractedFrom: domain.MessageID(d.ExtractedFrom),
			ChatID:        domain.ChatID(d.ChatID),
		})
	}
	return out
}
