package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// FormatHistory renders previous messages as a numbered list:
//
//	1. [Ana] (2026-03-01T12:00:00Z): text
//
// Returns "(no previous messages)" for an empty history.
func FormatHistory(msgs []domain.MessageContext) string {
	if len(msgs) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for i, m := range msgs {
		fmt.Fprintf(&b, "%d. [%s] (%s): %s\n", i+1, m.SenderName, m.CreatedAt.UTC().Format(time.RFC3339), m.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatCurrent renders the triggering message on one line.
func FormatCurrent(m domain.MessageContext) string {
	return fmt.Sprintf("[%s] (%s): %s", m.SenderName, m.CreatedAt.UTC().Format(time.RFC3339), m.Text)
}

const priorityPrompt = `You are a priority detection assistant for a team chat.
Decide whether the CURRENT message needs someone's prompt attention.

Use level "urgent" for outages, emergencies and explicit requests to drop everything.
Use level "high" for deadlines, blockers and important requests that can wait a few hours.
Ordinary conversation, greetings and thanks are not priorities.

Previous messages (oldest first):
%s

Current message:
%s

Respond with isPriority, and when it is true also level and a one sentence reason.`

const calendarPrompt = `You extract calendar events from chat messages.
Today's reference date is %s (the moment the current message was sent).
Chat participants: %s

Find every concrete event (meeting, call, deadline, appointment) the CURRENT message proposes or
confirms. Use the previous messages only to resolve references like "then" or "the same place".
Resolve relative dates ("tomorrow", "next Friday") against the reference date.

For each event return:
- title: short name
- description: optional details
- date: ISO 8601 date (YYYY-MM-DD), or full date-time if a time is known
- time: optional human time such as "15:00" or "3pm"
- participants: names of attendees taken from the participant list; leave empty if everyone is invited

Previous messages (oldest first):
%s

Current message:
%s

Return an empty events list when there is nothing to schedule.`
