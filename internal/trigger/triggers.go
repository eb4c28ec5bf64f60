package trigger

import (
	"boardflow/internal/domain"
)

// cardCreated matches every card_created event.
type cardCreated struct{}

func (cardCreated) Type() string { return "card_created" }

func (cardCreated) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardCreated
}

func (cardCreated) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardCreated) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}

// cardMoved matches any column move.
type cardMoved struct{}

func (cardMoved) Type() string { return "card_moved" }

func (cardMoved) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardMoved
}

func (cardMoved) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardMoved) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}

// cardMovedTo matches moves landing in a specific column.
type cardMovedTo struct{}

func (cardMovedTo) Type() string { return "card_moved_to" }

func (cardMovedTo) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardMoved {
		return false
	}
	target := configString(config, "targetColumnId")
	return target != "" && payloadString(event, "toColumnId") == target
}

func (cardMovedTo) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "targetColumnId") == "" {
		return domain.InvalidConfig("targetColumnId is required")
	}
	return domain.ValidConfig()
}

func (cardMovedTo) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "targetColumnId", Label: "Target column", Type: "select", Required: true},
	}}
}

// cardMovedFrom matches moves leaving a specific column.
type cardMovedFrom struct{}

func (cardMovedFrom) Type() string { return "card_moved_from" }

func (cardMovedFrom) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardMoved {
		return false
	}
	source := configString(config, "sourceColumnId")
	return source != "" && payloadString(event, "fromColumnId") == source
}

func (cardMovedFrom) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "sourceColumnId") == "" {
		return domain.InvalidConfig("sourceColumnId is required")
	}
	return domain.ValidConfig()
}

func (cardMovedFrom) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "sourceColumnId", Label: "Source column", Type: "select", Required: true},
	}}
}

// cardUpdated matches field edits; an optional field filter narrows to one
// edited field name.
type cardUpdated struct{}

func (cardUpdated) Type() string { return "card_updated" }

func (cardUpdated) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardUpdated {
		return false
	}
	if field := configString(config, "field"); field != "" {
		return payloadString(event, "field") == field
	}
	return true
}

func (cardUpdated) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardUpdated) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "field", Label: "Only when this field changes", Type: "string"},
	}}
}

// cardAssigned matches any assignment.
type cardAssigned struct{}

func (cardAssigned) Type() string { return "card_assigned" }

func (cardAssigned) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardAssigned
}

func (cardAssigned) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardAssigned) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}

// cardAssignedToUser matches assignment of one specific user.
type cardAssignedToUser struct{}

func (cardAssignedToUser) Type() string { return "card_assigned_to_user" }

func (cardAssignedToUser) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardAssigned {
		return false
	}
	userID := configString(config, "userId")
	return userID != "" && payloadString(event, "userId") == userID
}

func (cardAssignedToUser) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "userId") == "" {
		return domain.InvalidConfig("userId is required")
	}
	return domain.ValidConfig()
}

func (cardAssignedToUser) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "userId", Label: "User", Type: "select", Required: true},
	}}
}

// cardUnassigned matches assignee removal.
type cardUnassigned struct{}

func (cardUnassigned) Type() string { return "card_unassigned" }

func (cardUnassigned) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardUnassigned
}

func (cardUnassigned) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardUnassigned) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}

// cardTagAdded matches a tag being added, optionally one specific tag.
type cardTagAdded struct{}

func (cardTagAdded) Type() string { return "card_tag_added" }

func (cardTagAdded) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardTagAdded {
		return false
	}
	if tag := configString(config, "tag"); tag != "" {
		return payloadString(event, "tag") == tag
	}
	return true
}

func (cardTagAdded) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardTagAdded) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "tag", Label: "Tag", Type: "string"},
	}}
}

// cardTagRemoved matches a tag being removed, optionally one specific tag.
type cardTagRemoved struct{}

func (cardTagRemoved) Type() string { return "card_tag_removed" }

func (cardTagRemoved) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardTagRemoved {
		return false
	}
	if tag := configString(config, "tag"); tag != "" {
		return payloadString(event, "tag") == tag
	}
	return true
}

func (cardTagRemoved) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardTagRemoved) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "tag", Label: "Tag", Type: "string"},
	}}
}

// cardPriorityChanged matches priority edits, optionally to one specific
// new priority.
type cardPriorityChanged struct{}

func (cardPriorityChanged) Type() string { return "card_priority_changed" }

func (cardPriorityChanged) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardPriorityChanged {
		return false
	}
	if priority := configString(config, "priority"); priority != "" {
		return payloadString(event, "newPriority") == priority
	}
	return true
}

func (cardPriorityChanged) Validate(config map[string]any) domain.ValidationResult {
	if p := configString(config, "priority"); p != "" {
		switch p {
		case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent:
		default:
			return domain.InvalidConfig("priority must be one of low, medium, high, urgent")
		}
	}
	return domain.ValidConfig()
}

func (cardPriorityChanged) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "priority", Label: "New priority", Type: "select",
			Options: []string{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent}},
	}}
}

// cardDueDateSet matches a due date being set or changed.
type cardDueDateSet struct{}

func (cardDueDateSet) Type() string { return "card_due_date_set" }

func (cardDueDateSet) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardDueDateSet
}

func (cardDueDateSet) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardDueDateSet) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}

// cardDueDatePassed matches scheduler-emitted overdue events.
type cardDueDatePassed struct{}

func (cardDueDatePassed) Type() string { return "card_due_date_passed" }

func (cardDueDatePassed) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardDueDatePassed
}

func (cardDueDatePassed) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardDueDatePassed) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}

// cardDueSoon matches scheduler-emitted due-soon events within the
// configured horizon. The scheduler precomputes daysUntilDue.
type cardDueSoon struct{}

func (cardDueSoon) Type() string { return "card_due_soon" }

func (cardDueSoon) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardDueSoon {
		return false
	}
	days, ok := configNumber(config, "days")
	if !ok {
		return true
	}
	daysUntilDue, ok := payloadNumber(event, "daysUntilDue")
	return ok && daysUntilDue <= days
}

func (cardDueSoon) Validate(config map[string]any) domain.ValidationResult {
	if days, ok := configNumber(config, "days"); ok && days < 0 {
		return domain.InvalidConfig("days must not be negative")
	}
	return domain.ValidConfig()
}

func (cardDueSoon) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "days", Label: "Days before due", Type: "number", DefaultValue: 2},
	}}
}

// cardStuckInColumn matches scheduler-emitted stuck events once a card has
// sat in a column for at least the configured number of days. The
// scheduler precomputes daysInColumn; the handler stays clock-free.
type cardStuckInColumn struct{}

func (cardStuckInColumn) Type() string { return "card_stuck_in_column" }

func (cardStuckInColumn) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventCardStuckInColumn {
		return false
	}
	days, ok := configNumber(config, "days")
	if !ok {
		return false
	}
	if columnID := configString(config, "columnId"); columnID != "" {
		if payloadString(event, "columnId") != columnID {
			return false
		}
	}
	daysInColumn, ok := payloadNumber(event, "daysInColumn")
	return ok && daysInColumn >= days
}

func (cardStuckInColumn) Validate(config map[string]any) domain.ValidationResult {
	days, ok := configNumber(config, "days")
	if !ok || days <= 0 {
		return domain.InvalidConfig("days must be a positive number")
	}
	return domain.ValidConfig()
}

func (cardStuckInColumn) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "days", Label: "Days in column", Type: "number", Required: true},
		{Key: "columnId", Label: "Column", Type: "select"},
	}}
}

// subtaskCompleted matches subtask completion; with allCompleted it only
// fires when the completed subtask was the card's last open one.
type subtaskCompleted struct{}

func (subtaskCompleted) Type() string { return "subtask_completed" }

func (subtaskCompleted) Matches(event domain.BoardEvent, config map[string]any) bool {
	if event.Type != domain.EventSubtaskCompleted {
		return false
	}
	if all, ok := config["allCompleted"].(bool); ok && all {
		return payloadBool(event, "allCompleted")
	}
	return true
}

func (subtaskCompleted) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (subtaskCompleted) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "allCompleted", Label: "Only when all subtasks are done", Type: "boolean", DefaultValue: false},
	}}
}

// cardArchived matches a card being archived.
type cardArchived struct{}

func (cardArchived) Type() string { return "card_archived" }

func (cardArchived) Matches(event domain.BoardEvent, _ map[string]any) bool {
	return event.Type == domain.EventCardArchived
}

func (cardArchived) Validate(_ map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (cardArchived) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{}}
}
