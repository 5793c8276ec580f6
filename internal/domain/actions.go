package domain

// ActionName identifies a registered action handler.
type ActionName string

const (
	ActionPriority ActionName = "priority"
	ActionCalendar ActionName = "calendar"
)

// PlanPriority is the router's urgency hint for a message.
type PlanPriority string

const (
	PlanPriorityHigh   PlanPriority = "high"
	PlanPriorityMedium PlanPriority = "medium"
	PlanPriorityLow    PlanPriority = "low"
)

func (p PlanPriority) Valid() bool {
	switch p {
	case PlanPriorityHigh, PlanPriorityMedium, PlanPriorityLow:
		return true
	}
	return false
}

// ActionPlan says which actions to run for one message. It is never
// persisted. Order of Actions is not significant for execution.
type ActionPlan struct {
	Actions   []ActionName `json:"actions"`
	Priority  PlanPriority `json:"priority,omitempty"`
	Reasoning string       `json:"reasoning,omitempty"`
}

// ActionMetadata is the routing information handed to every handler.
type ActionMetadata struct {
	Priority  PlanPriority
	Reasoning string
}

// ActionResult is the outcome of one executed action. Handlers persist
// their own writes; results are only logged and reported.
type ActionResult struct {
	ActionName ActionName     `json:"actionName"`
	Success    bool           `json:"success"`
	Data       map[string]any `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func FailedResult(name ActionName, msg string) ActionResult {
	return ActionResult{ActionName: name, Success: false, Error: msg}
}
