package actions

import (
	"sync"

	"github.com/PabloGalante/chatflow/internal/domain"
)

// Registry maps action names to handlers. Adding an action means
// registering a handler here; the executor and router read from it.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.ActionName]Handler
	order    []domain.ActionName
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[domain.ActionName]Handler)}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// NewDefaultRegistry wires the built-in priority and calendar handlers.
func NewDefaultRegistry(gen domain.Generator, store domain.ProjectionStore) *Registry {
	return NewRegistry(
		NewPriorityHandler(NewAIPriorityDetector(gen), store),
		NewCalendarHandler(NewAIEventExtractor(gen), store),
	)
}

// Register adds h, replacing any handler already registered under its name.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.Name()
	if _, exists := r.handlers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
}

func (r *Registry) Lookup(name domain.ActionName) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered action names in registration order.
func (r *Registry) Names() []domain.ActionName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ActionName, len(r.order))
	copy(out, r.order)
	return out
}

// Handlers returns the registered handlers in registration order.
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handler, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.handlers[name])
	}
	return out
}
