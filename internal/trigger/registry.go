package trigger

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps trigger type keys to handlers. Safe for concurrent reads
// after construction. Build one with BuildRegistry at process start; there
// is deliberately no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register stores a handler by type key. Overwriting an existing type is
// allowed but warned, since a duplicate usually means a copy-paste slip in
// the static handler list.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[h.Type()]; exists {
		r.logger.Warn().Str("trigger_type", h.Type()).Msg("overwriting registered trigger handler")
	}
	r.handlers[h.Type()] = h
}

// Get returns the handler for a type key.
func (r *Registry) Get(triggerType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[triggerType]
	return h, ok
}

// Types returns all registered type keys, sorted for stable introspection.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// All returns every registered handler, sorted by type key.
func (r *Registry) All() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handlers := make([]Handler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	sort.Slice(handlers, func(i, j int) bool { return handlers[i].Type() < handlers[j].Type() })
	return handlers
}

// BuildRegistry constructs a registry with every known trigger handler.
// The static list here is the single source of truth for what the engine
// can match on; nothing registers via import side effects.
func BuildRegistry(logger zerolog.Logger) *Registry {
	r := NewRegistry(logger)
	for _, h := range []Handler{
		cardCreated{},
		cardMoved{},
		cardMovedTo{},
		cardMovedFrom{},
		cardUpdated{},
		cardAssigned{},
		cardAssignedToUser{},
		cardUnassigned{},
		cardTagAdded{},
		cardTagRemoved{},
		cardPriorityChanged{},
		cardDueDateSet{},
		cardDueDatePassed{},
		cardDueSoon{},
		cardStuckInColumn{},
		subtaskCompleted{},
		cardArchived{},
	} {
		r.Register(h)
	}
	return r
}
