package domain

// BoardEvent is a single occurrence on a board: a card mutation reported by
// the CRUD layer or a time-based event synthesized by the scheduler. It is
// immutable and consumed exactly once per engine evaluation.
type BoardEvent struct {
	Type        string         `json:"type"`
	BoardID     string         `json:"board_id"`
	CardID      string         `json:"card_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	TriggeredBy string         `json:"triggered_by,omitempty"`
}

// TriggerSpec is the trigger half of a rule: a handler type plus its config.
type TriggerSpec struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Condition gates rule execution after a trigger match. All conditions on a
// rule are AND-ed; an empty list always passes.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// ActionStep is one step of a rule's pipeline. Steps run strictly in array
// order; ContinueOnFailure decides whether a failed step stops the pipeline.
type ActionStep struct {
	Type              string         `json:"type"`
	Config            map[string]any `json:"config,omitempty"`
	ContinueOnFailure bool           `json:"continue_on_failure,omitempty"`
}

// Rule is a board-scoped automation unit: one trigger, zero or more
// conditions, an ordered action pipeline. Run counters are updated by the
// engine after each run, best-effort.
type Rule struct {
	ID            string       `json:"id"`
	BoardID       string       `json:"board_id"`
	Name          string       `json:"name"`
	IsActive      bool         `json:"is_active"`
	Trigger       TriggerSpec  `json:"trigger"`
	Conditions    []Condition  `json:"conditions,omitempty"`
	Actions       []ActionStep `json:"actions"`
	RunCount      int          `json:"run_count"`
	LastRunAt     *string      `json:"last_run_at,omitempty" format:"date-time"`
	LastRunStatus *string      `json:"last_run_status,omitempty"`
	CreatedAt     string       `json:"created_at" format:"date-time"`
	UpdatedAt     string       `json:"updated_at" format:"date-time"`
}

// CardUser is the projection of a user the engine needs: enough to notify
// and to resolve template variables.
type CardUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Column is one column of a board, ordered by Position.
type Column struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ColorKey string `json:"color_key,omitempty"`
	Position int    `json:"position"`
}

// BoardData is the board projection fetched once per event and shared
// read-only across all rule evaluations for that event.
type BoardData struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	WorkspaceID string   `json:"workspace_id,omitempty"`
	Columns     []Column `json:"columns"`
}

// ColumnLabel resolves a column id to its display label. Falls back to the
// id when the column is unknown.
func (b BoardData) ColumnLabel(columnID string) string {
	for _, c := range b.Columns {
		if c.ID == columnID {
			return c.Label
		}
	}
	return columnID
}

// HasColumn reports whether the board contains the given column.
func (b BoardData) HasColumn(columnID string) bool {
	for _, c := range b.Columns {
		if c.ID == columnID {
			return true
		}
	}
	return false
}

// CardData is a point-in-time snapshot of a card, built fresh from storage
// on every rule evaluation and never cached across rules or events.
type CardData struct {
	ID           string            `json:"id"`
	BoardID      string            `json:"board_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Status       string            `json:"status"` // column id
	Priority     string            `json:"priority,omitempty"`
	DueDate      *string           `json:"due_date,omitempty" format:"date-time"`
	Assignees    []CardUser        `json:"assignees,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	CreatedBy    *CardUser         `json:"created_by,omitempty"`
	BusinessID   string            `json:"business_id,omitempty"`
	Archived     bool              `json:"archived,omitempty"`
	// ColumnEnteredAt is when the card last changed column; the scheduler
	// derives daysInColumn from it.
	ColumnEnteredAt string `json:"column_entered_at,omitempty" format:"date-time"`
	CreatedAt       string `json:"created_at" format:"date-time"`
	UpdatedAt       string `json:"updated_at" format:"date-time"`
}

// FlowContext is the per-run bundle passed to every action handler.
// PreviousActionOutputs accumulates as the pipeline progresses; it is
// write-once per "step.<index>" key and read-many.
type FlowContext struct {
	Rule                  Rule
	Card                  CardData
	Board                 BoardData
	Event                 BoardEvent
	TriggerUser           *CardUser
	PreviousActionOutputs map[string]map[string]any
	RunID                 string
}

// ActionResult is the outcome of one action step. Failures are data, not
// errors: the pipeline's continue/stop logic works uniformly off Success.
// ErrorCode carries a stable machine-readable code for unimplemented-module
// stubs and unknown-type failures.
type ActionResult struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	ErrorCode string         `json:"error_code,omitempty"`
	Details   string         `json:"details,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
}

// Run statuses derived from a finished (or short-circuited) pipeline.
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// RunResult is the audit record of one rule run. It is written once per
// executed rule, best-effort: a logging failure never fails the run.
type RunResult struct {
	RunID            string         `json:"run_id"`
	RuleID           string         `json:"rule_id"`
	BoardID          string         `json:"board_id"`
	CardID           string         `json:"card_id,omitempty"`
	TriggeredBy      string         `json:"triggered_by,omitempty"`
	Status           string         `json:"status" enum:"success,partial,failed"`
	ActionsTotal     int            `json:"actions_total"`
	ActionsSucceeded int            `json:"actions_succeeded"`
	ActionsFailed    int            `json:"actions_failed"`
	ActionResults    []ActionResult `json:"action_results"`
	ErrorMessage     string         `json:"error_message,omitempty"`
	DurationMs       int64          `json:"duration_ms"`
	CreatedAt        string         `json:"created_at" format:"date-time"`
}

// Subtask is a checklist item attached to a card.
type Subtask struct {
	ID         string  `json:"id"`
	CardID     string  `json:"card_id"`
	Title      string  `json:"title"`
	Done       bool    `json:"done"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

// Notification is an in-app notification record. Delivery beyond writing
// the record is outside the engine.
type Notification struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	CardID    string  `json:"card_id,omitempty"`
	Message   string  `json:"message"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	ReadAt    *string `json:"read_at,omitempty" format:"date-time"`
}

// OutboxEmail is a pending external email; a dispatcher drains the outbox.
type OutboxEmail struct {
	ID        string  `json:"id"`
	Recipient string  `json:"recipient"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body,omitempty"`
	Status    string  `json:"status" enum:"pending,sent,failed"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	SentAt    *string `json:"sent_at,omitempty" format:"date-time"`
}

// Event is a persisted board event row, the append-only audit feed consumed
// by webhook dispatch.
type Event struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts" format:"date-time"`
	Type    string `json:"type"`
	BoardID string `json:"board_id"`
	CardID  string `json:"card_id,omitempty"`
	ActorID string `json:"actor_id,omitempty"`
	Payload string `json:"payload_json"`
}

// APIKey authenticates a caller of the HTTP API.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
