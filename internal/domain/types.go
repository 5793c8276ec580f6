package domain

import (
	"errors"
	"time"
)

type ChatID string
type UserID string
type MessageID string

// CollectionType names the top-level collection a conversation lives in.
type CollectionType string

const (
	CollectionChats  CollectionType = "chats"  // one-to-one chats, roster in "participants"
	CollectionGroups CollectionType = "groups" // group chats, roster in "members"
)

func (c CollectionType) Valid() bool {
	return c == CollectionChats || c == CollectionGroups
}

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("not found")

// UnixMillis converts a millisecond epoch into a UTC time.
func UnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
