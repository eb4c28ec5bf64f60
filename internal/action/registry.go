package action

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps action type keys to their handlers. Safe for concurrent
// reads once populated.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{handlers: map[string]Handler{}, logger: logger}
}

func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[h.Type()]; ok {
		r.logger.Warn().Str("action", h.Type()).Msg("overwriting registered action handler")
	}
	r.handlers[h.Type()] = h
}

func (r *Registry) Get(actionType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[actionType]
	return h, ok
}

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

// Action categories, for grouped introspection.
const (
	CategoryCard         = "card"
	CategorySubtask      = "subtask"
	CategoryNotification = "notification"
	CategoryContract     = "contract"
	CategoryInvoice      = "invoice"
	CategoryAI           = "ai"
)

var categories = map[string]string{
	"move_card":             CategoryCard,
	"move_card_to_top":      CategoryCard,
	"assign_user":           CategoryCard,
	"unassign_user":         CategoryCard,
	"assign_creator":        CategoryCard,
	"set_priority":          CategoryCard,
	"set_due_date":          CategoryCard,
	"clear_due_date":        CategoryCard,
	"set_custom_field":      CategoryCard,
	"add_tag":               CategoryCard,
	"remove_tag":            CategoryCard,
	"set_title_prefix":      CategoryCard,
	"update_description":    CategoryCard,
	"archive_card":          CategoryCard,
	"copy_card":             CategoryCard,
	"create_subtask":        CategorySubtask,
	"create_subtasks":       CategorySubtask,
	"complete_all_subtasks": CategorySubtask,
	"assign_all_subtasks":   CategorySubtask,
	"notify_users":          CategoryNotification,
	"notify_card_assignee":  CategoryNotification,
	"notify_card_creator":   CategoryNotification,
	"notify_team":           CategoryNotification,
	"send_email":            CategoryNotification,
	"generate_contract":     CategoryContract,
	"send_contract":         CategoryContract,
	"create_invoice":        CategoryInvoice,
	"send_invoice":          CategoryInvoice,
	"ai_summarize_card":     CategoryAI,
	"ai_draft_reply":        CategoryAI,
}

// CategoryOf returns the category for an action type, or "" for unknown
// types.
func CategoryOf(actionType string) string {
	return categories[actionType]
}

// ByCategory returns the registered handlers in one category, sorted by
// type key.
func (r *Registry) ByCategory(category string) []Handler {
	var handlers []Handler
	for _, h := range r.All() {
		if categories[h.Type()] == category {
			handlers = append(handlers, h)
		}
	}
	return handlers
}

// BuildRegistry wires every built-in action handler. Registration is
// explicit so the full set is visible in one place.
func BuildRegistry(deps Deps) *Registry {
	r := NewRegistry(deps.Logger)
	for _, h := range []Handler{
		// card mutations
		moveCard{deps},
		moveCardToTop{deps},
		assignUser{deps},
		unassignUser{deps},
		assignCreator{deps},
		setPriority{deps},
		setDueDate{deps},
		clearDueDate{deps},
		setCustomField{deps},
		addTag{deps},
		removeTag{deps},
		setTitlePrefix{deps},
		updateDescription{deps},
		archiveCard{deps},
		copyCard{deps},
		// subtasks
		createSubtask{deps},
		createSubtasks{deps},
		completeAllSubtasks{deps},
		assignAllSubtasks{deps},
		// notifications
		notifyUsers{deps},
		notifyCardAssignee{deps},
		notifyCardCreator{deps},
		notifyTeam{deps},
		sendEmail{deps},
		// modules not yet available
		stubAction{typ: "generate_contract", label: "Generate contract", code: CodeContractNotImplemented},
		stubAction{typ: "send_contract", label: "Send contract for signature", code: CodeContractNotImplemented},
		stubAction{typ: "create_invoice", label: "Create invoice", code: CodeInvoiceNotImplemented},
		stubAction{typ: "send_invoice", label: "Send invoice", code: CodeInvoiceNotImplemented},
		stubAction{typ: "ai_summarize_card", label: "Summarize card with AI", code: CodeAINotImplemented},
		stubAction{typ: "ai_draft_reply", label: "Draft reply with AI", code: CodeAINotImplemented},
	} {
		r.Register(h)
	}
	return r
}
