package agentflow

import (
	"regexp"
	"strings"

	"github.com/PabloGalante/chatflow/internal/domain"
)

var priorityKeywords = []string{
	"urgent",
	"asap",
	"emergency",
	"critical",
	"blocker",
	"immediate",
	"important",
	"deadline",
	"drop everything",
	"as soon as possible",
}

var calendarKeywords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"tomorrow", "today", "tonight", "next week",
	"meeting", "meet", "schedule", "appointment", "standup", "stand-up", "sync",
	"calendar", "event", "reschedule",
}

// MM/DD, MM-DD, YYYY-MM-DD, "March 3rd", H:MM, "at 3", "3pm".
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{1,2}/\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(st|nd|rd|th)?\b`),
	regexp.MustCompile(`\b\d{1,2}:\d{2}\b`),
	regexp.MustCompile(`(?i)\bat\s+\d{1,2}(:\d{2})?\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s*(am|pm)\b`),
}

var timePattern = regexp.MustCompile(`(?i)\b(\d{1,2}(:\d{2})?\s*(am|pm)|\d{1,2}:\d{2}|noon|midnight)\b`)

const (
	fallbackPriorityReason = "Fallback routing: urgency keywords found"
	fallbackCalendarReason = "Fallback routing: date or time reference found"
	fallbackBothReason     = "Fallback routing: urgency keywords and a date or time reference found"
	fallbackDefaultReason  = "Fallback routing: no keywords matched, running all actions"
)

// FallbackActionPlan routes with keywords and patterns only. It does no I/O
// and always returns a plan.
//
// Urgency keywords are searched in the current and previous messages;
// calendar keywords and date/time patterns only in the current message.
// When nothing matches, every action runs at low priority.
func FallbackActionPlan(ec *domain.EnrichedContext) domain.ActionPlan {
	wantPriority := hasPriorityKeyword(ec)
	wantCalendar := hasCalendarReference(ec.CurrentMessage.Text)

	switch {
	case wantPriority && wantCalendar:
		return domain.ActionPlan{
			Actions:   []domain.ActionName{domain.ActionPriority, domain.ActionCalendar},
			Priority:  domain.PlanPriorityHigh,
			Reasoning: fallbackBothReason,
		}
	case wantPriority:
		return domain.ActionPlan{
			Actions:   []domain.ActionName{domain.ActionPriority},
			Priority:  domain.PlanPriorityHigh,
			Reasoning: fallbackPriorityReason,
		}
	case wantCalendar:
		return domain.ActionPlan{
			Actions:   []domain.ActionName{domain.ActionCalendar},
			Priority:  domain.PlanPriorityLow,
			Reasoning: fallbackCalendarReason,
		}
	default:
		return domain.ActionPlan{
			Actions:   []domain.ActionName{domain.ActionPriority, domain.ActionCalendar},
			Priority:  domain.PlanPriorityLow,
			Reasoning: fallbackDefaultReason,
		}
	}
}

func hasPriorityKeyword(ec *domain.EnrichedContext) bool {
	if containsAny(ec.CurrentMessage.Text, priorityKeywords) {
		return true
	}
	for _, m := range ec.PreviousMessages {
		if containsAny(m.Text, priorityKeywords) {
			return true
		}
	}
	return false
}

func hasCalendarReference(text string) bool {
	if containsAny(text, calendarKeywords) {
		return true
	}
	for _, re := range datePatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return timePattern.MatchString(text)
}

// containsAny is a case-insensitive substring match.
func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
