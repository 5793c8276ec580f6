package domain

import "time"

// PriorityLevel is the severity assigned by the priority handler.
type PriorityLevel string

const (
	PriorityLevelHigh   PriorityLevel = "high"
	PriorityLevelUrgent PriorityLevel = "urgent"
)

func (l PriorityLevel) Valid() bool {
	return l == PriorityLevelHigh || l == PriorityLevelUrgent
}

// Priority flags one message as needing attention.
type Priority struct {
	MessageID MessageID     `json:"messageId"`
	Level     PriorityLevel `json:"level"`
	Reason    string        `json:"reason"`
	Timestamp time.Time     `json:"timestamp"`
}

// UserPriority is the per-user copy of a Priority, tagged with its chat.
type UserPriority struct {
	Priority
	ChatID ChatID `json:"chatId"`
}

type ChatPriorities struct {
	ChatID      ChatID     `json:"chatId"`
	Priorities  []Priority `json:"priorities"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

type UserPriorities struct {
	UserID      UserID         `json:"userId"`
	Priorities  []UserPriority `json:"priorities"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// CalendarEvent is an event extracted from a message. ID is
// "event-{messageId}-{index}", index being the position in the extractor
// output, so a redelivered message yields the same IDs.
// Date is milliseconds since the epoch.
type CalendarEvent struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Date          int64     `json:"date"`
	Time          string    `json:"time,omitempty"`
	Participants  []string  `json:"participants,omitempty"`
	ExtractedFrom MessageID `json:"extractedFrom"`
	ChatID        ChatID    `json:"chatId,omitempty"`
}

type ChatCalendar struct {
	ChatID      ChatID          `json:"chatId"`
	Events      []CalendarEvent `json:"events"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// UserCalendar holds events whose ChatID is always set.
type UserCalendar struct {
	UserID      UserID          `json:"userId"`
	Events      []CalendarEvent `json:"events"`
	LastUpdated time.Time       `json:"lastUpdated"`
}
