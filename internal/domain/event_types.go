package domain

// Board event types the engine understands. The first group is emitted by
// the card CRUD layer; the second group is synthesized by the scheduler,
// which precomputes any time arithmetic (daysInColumn, daysUntilDue) into
// the event payload so trigger handlers stay pure.
const (
	EventCardCreated         = "card_created"
	EventCardMoved           = "card_moved"
	EventCardUpdated         = "card_updated"
	EventCardAssigned        = "card_assigned"
	EventCardUnassigned      = "card_unassigned"
	EventCardTagAdded        = "card_tag_added"
	EventCardTagRemoved      = "card_tag_removed"
	EventCardPriorityChanged = "card_priority_changed"
	EventCardDueDateSet      = "card_due_date_set"
	EventCardArchived        = "card_archived"
	EventSubtaskCompleted    = "subtask_completed"

	EventCardDueDatePassed = "card_due_date_passed"
	EventCardDueSoon       = "card_due_soon"
	EventCardStuckInColumn = "card_stuck_in_column"
)

// Card priorities, lowest to highest.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)
