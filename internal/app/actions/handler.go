package actions

import (
	"context"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// Handler is a pluggable unit of work run by the executor for one message.
//
// Run must treat ec as read-only: several handlers receive the same context
// concurrently. Handlers persist their own writes and report the outcome in
// the returned ActionResult; a non-nil error is converted into a failed
// result by the caller.
type Handler interface {
	Name() domain.ActionName
	// Description tells the router when this action should be selected.
	Description() string
	Run(ctx context.Context, ec *domain.EnrichedContext, meta domain.ActionMetadata) (domain.ActionResult, error)
}

// HandlerFunc adapts a plain function to Handler. Useful for tests and small
// actions that need no state.
type HandlerFunc struct {
	ActionName domain.ActionName
	Describe   string
	Fn         func(ctx context.Context, ec *domain.EnrichedContext, meta domain.ActionMetadata) (domain.ActionResult, error)
}

func (h HandlerFunc) Name() domain.ActionName { return h.ActionName }

func (h HandlerFunc) Description() string { return h.Describe }

func (h HandlerFunc) Run(ctx context.Context, ec *domain.EnrichedContext, meta domain.ActionMetadata) (domain.ActionResult, error) {
	return h.Fn(ctx, ec, meta)
}
