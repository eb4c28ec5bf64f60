package trigger

import (
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardflow/internal/domain"
)

func evt(typ string, payload map[string]any) domain.BoardEvent {
	return domain.BoardEvent{
		Type:    typ,
		BoardID: "board-1",
		CardID:  "card-1",
		Payload: payload,
	}
}

func TestMatches(t *testing.T) {
	reg := BuildRegistry(zerolog.Nop())

	tests := []struct {
		name        string
		triggerType string
		config      map[string]any
		event       domain.BoardEvent
		want        bool
	}{
		{
			name:        "card_created matches its event",
			triggerType: "card_created",
			event:       evt(domain.EventCardCreated, map[string]any{"columnId": "todo"}),
			want:        true,
		},
		{
			name:        "card_created ignores other events",
			triggerType: "card_created",
			event:       evt(domain.EventCardMoved, nil),
			want:        false,
		},
		{
			name:        "card_moved matches any move",
			triggerType: "card_moved",
			event:       evt(domain.EventCardMoved, map[string]any{"fromColumnId": "todo", "toColumnId": "done"}),
			want:        true,
		},
		{
			name:        "card_moved_to matches target column",
			triggerType: "card_moved_to",
			config:      map[string]any{"targetColumnId": "done"},
			event:       evt(domain.EventCardMoved, map[string]any{"fromColumnId": "todo", "toColumnId": "done"}),
			want:        true,
		},
		{
			name:        "card_moved_to rejects other columns",
			triggerType: "card_moved_to",
			config:      map[string]any{"targetColumnId": "done"},
			event:       evt(domain.EventCardMoved, map[string]any{"fromColumnId": "todo", "toColumnId": "in_progress"}),
			want:        false,
		},
		{
			name:        "card_moved_to without target never matches",
			triggerType: "card_moved_to",
			config:      map[string]any{},
			event:       evt(domain.EventCardMoved, map[string]any{"toColumnId": "done"}),
			want:        false,
		},
		{
			name:        "card_moved_from matches source column",
			triggerType: "card_moved_from",
			config:      map[string]any{"sourceColumnId": "todo"},
			event:       evt(domain.EventCardMoved, map[string]any{"fromColumnId": "todo", "toColumnId": "done"}),
			want:        true,
		},
		{
			name:        "card_moved_from rejects other sources",
			triggerType: "card_moved_from",
			config:      map[string]any{"sourceColumnId": "in_progress"},
			event:       evt(domain.EventCardMoved, map[string]any{"fromColumnId": "todo", "toColumnId": "done"}),
			want:        false,
		},
		{
			name:        "card_updated without filter matches any field",
			triggerType: "card_updated",
			event:       evt(domain.EventCardUpdated, map[string]any{"field": "title"}),
			want:        true,
		},
		{
			name:        "card_updated field filter matches",
			triggerType: "card_updated",
			config:      map[string]any{"field": "description"},
			event:       evt(domain.EventCardUpdated, map[string]any{"field": "description"}),
			want:        true,
		},
		{
			name:        "card_updated field filter rejects other fields",
			triggerType: "card_updated",
			config:      map[string]any{"field": "description"},
			event:       evt(domain.EventCardUpdated, map[string]any{"field": "title"}),
			want:        false,
		},
		{
			name:        "card_assigned matches any assignment",
			triggerType: "card_assigned",
			event:       evt(domain.EventCardAssigned, map[string]any{"userId": "u1"}),
			want:        true,
		},
		{
			name:        "card_assigned_to_user matches the configured user",
			triggerType: "card_assigned_to_user",
			config:      map[string]any{"userId": "u1"},
			event:       evt(domain.EventCardAssigned, map[string]any{"userId": "u1"}),
			want:        true,
		},
		{
			name:        "card_assigned_to_user rejects other users",
			triggerType: "card_assigned_to_user",
			config:      map[string]any{"userId": "u1"},
			event:       evt(domain.EventCardAssigned, map[string]any{"userId": "u2"}),
			want:        false,
		},
		{
			name:        "card_unassigned matches",
			triggerType: "card_unassigned",
			event:       evt(domain.EventCardUnassigned, map[string]any{"userId": "u1"}),
			want:        true,
		},
		{
			name:        "card_tag_added without filter matches any tag",
			triggerType: "card_tag_added",
			event:       evt(domain.EventCardTagAdded, map[string]any{"tag": "bug"}),
			want:        true,
		},
		{
			name:        "card_tag_added tag filter matches",
			triggerType: "card_tag_added",
			config:      map[string]any{"tag": "bug"},
			event:       evt(domain.EventCardTagAdded, map[string]any{"tag": "bug"}),
			want:        true,
		},
		{
			name:        "card_tag_added tag filter rejects other tags",
			triggerType: "card_tag_added",
			config:      map[string]any{"tag": "bug"},
			event:       evt(domain.EventCardTagAdded, map[string]any{"tag": "feature"}),
			want:        false,
		},
		{
			name:        "card_tag_removed tag filter matches",
			triggerType: "card_tag_removed",
			config:      map[string]any{"tag": "blocked"},
			event:       evt(domain.EventCardTagRemoved, map[string]any{"tag": "blocked"}),
			want:        true,
		},
		{
			name:        "card_priority_changed without filter matches any change",
			triggerType: "card_priority_changed",
			event:       evt(domain.EventCardPriorityChanged, map[string]any{"oldPriority": "low", "newPriority": "high"}),
			want:        true,
		},
		{
			name:        "card_priority_changed priority filter matches new priority",
			triggerType: "card_priority_changed",
			config:      map[string]any{"priority": "urgent"},
			event:       evt(domain.EventCardPriorityChanged, map[string]any{"oldPriority": "high", "newPriority": "urgent"}),
			want:        true,
		},
		{
			name:        "card_priority_changed priority filter rejects others",
			triggerType: "card_priority_changed",
			config:      map[string]any{"priority": "urgent"},
			event:       evt(domain.EventCardPriorityChanged, map[string]any{"oldPriority": "low", "newPriority": "medium"}),
			want:        false,
		},
		{
			name:        "card_due_date_set matches",
			triggerType: "card_due_date_set",
			event:       evt(domain.EventCardDueDateSet, map[string]any{"dueDate": "2026-03-01T00:00:00Z"}),
			want:        true,
		},
		{
			name:        "card_due_date_passed matches",
			triggerType: "card_due_date_passed",
			event:       evt(domain.EventCardDueDatePassed, map[string]any{"dueDate": "2026-02-01T00:00:00Z"}),
			want:        true,
		},
		{
			name:        "card_due_soon without days matches any horizon",
			triggerType: "card_due_soon",
			event:       evt(domain.EventCardDueSoon, map[string]any{"daysUntilDue": float64(5)}),
			want:        true,
		},
		{
			name:        "card_due_soon within configured horizon",
			triggerType: "card_due_soon",
			config:      map[string]any{"days": float64(3)},
			event:       evt(domain.EventCardDueSoon, map[string]any{"daysUntilDue": float64(2)}),
			want:        true,
		},
		{
			name:        "card_due_soon beyond configured horizon",
			triggerType: "card_due_soon",
			config:      map[string]any{"days": float64(1)},
			event:       evt(domain.EventCardDueSoon, map[string]any{"daysUntilDue": float64(2)}),
			want:        false,
		},
		{
			name:        "card_stuck_in_column at threshold",
			triggerType: "card_stuck_in_column",
			config:      map[string]any{"days": float64(3)},
			event:       evt(domain.EventCardStuckInColumn, map[string]any{"columnId": "in_progress", "daysInColumn": float64(3)}),
			want:        true,
		},
		{
			name:        "card_stuck_in_column below threshold",
			triggerType: "card_stuck_in_column",
			config:      map[string]any{"days": float64(5)},
			event:       evt(domain.EventCardStuckInColumn, map[string]any{"columnId": "in_progress", "daysInColumn": float64(3)}),
			want:        false,
		},
		{
			name:        "card_stuck_in_column without days never matches",
			triggerType: "card_stuck_in_column",
			config:      map[string]any{},
			event:       evt(domain.EventCardStuckInColumn, map[string]any{"daysInColumn": float64(10)}),
			want:        false,
		},
		{
			name:        "card_stuck_in_column column filter matches",
			triggerType: "card_stuck_in_column",
			config:      map[string]any{"days": float64(2), "columnId": "review"},
			event:       evt(domain.EventCardStuckInColumn, map[string]any{"columnId": "review", "daysInColumn": float64(4)}),
			want:        true,
		},
		{
			name:        "card_stuck_in_column column filter rejects other columns",
			triggerType: "card_stuck_in_column",
			config:      map[string]any{"days": float64(2), "columnId": "review"},
			event:       evt(domain.EventCardStuckInColumn, map[string]any{"columnId": "todo", "daysInColumn": float64(4)}),
			want:        false,
		},
		{
			name:        "subtask_completed matches any completion",
			triggerType: "subtask_completed",
			event:       evt(domain.EventSubtaskCompleted, map[string]any{"subtaskId": "s1", "allCompleted": false}),
			want:        true,
		},
		{
			name:        "subtask_completed allCompleted filter waits for last one",
			triggerType: "subtask_completed",
			config:      map[string]any{"allCompleted": true},
			event:       evt(domain.EventSubtaskCompleted, map[string]any{"subtaskId": "s1", "allCompleted": false}),
			want:        false,
		},
		{
			name:        "subtask_completed allCompleted filter fires on the last one",
			triggerType: "subtask_completed",
			config:      map[string]any{"allCompleted": true},
			event:       evt(domain.EventSubtaskCompleted, map[string]any{"subtaskId": "s2", "allCompleted": true}),
			want:        true,
		},
		{
			name:        "card_archived matches",
			triggerType: "card_archived",
			event:       evt(domain.EventCardArchived, nil),
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := reg.Get(tt.triggerType)
			require.True(t, ok, "handler %s not registered", tt.triggerType)
			assert.Equal(t, tt.want, h.Matches(tt.event, tt.config))
		})
	}
}

func TestValidate(t *testing.T) {
	reg := BuildRegistry(zerolog.Nop())

	tests := []struct {
		name        string
		triggerType string
		config      map[string]any
		wantValid   bool
	}{
		{"card_created accepts empty config", "card_created", nil, true},
		{"card_moved_to requires targetColumnId", "card_moved_to", map[string]any{}, false},
		{"card_moved_to with target", "card_moved_to", map[string]any{"targetColumnId": "done"}, true},
		{"card_moved_from requires sourceColumnId", "card_moved_from", nil, false},
		{"card_assigned_to_user requires userId", "card_assigned_to_user", map[string]any{}, false},
		{"card_assigned_to_user with userId", "card_assigned_to_user", map[string]any{"userId": "u1"}, true},
		{"card_priority_changed accepts known priority", "card_priority_changed", map[string]any{"priority": "high"}, true},
		{"card_priority_changed rejects unknown priority", "card_priority_changed", map[string]any{"priority": "critical"}, false},
		{"card_priority_changed accepts no filter", "card_priority_changed", nil, true},
		{"card_due_soon rejects negative days", "card_due_soon", map[string]any{"days": float64(-1)}, false},
		{"card_due_soon accepts zero days", "card_due_soon", map[string]any{"days": float64(0)}, true},
		{"card_stuck_in_column requires positive days", "card_stuck_in_column", map[string]any{}, false},
		{"card_stuck_in_column rejects zero days", "card_stuck_in_column", map[string]any{"days": float64(0)}, false},
		{"card_stuck_in_column accepts positive days", "card_stuck_in_column", map[string]any{"days": float64(3)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := reg.Get(tt.triggerType)
			require.True(t, ok, "handler %s not registered", tt.triggerType)
			res := h.Validate(tt.config)
			assert.Equal(t, tt.wantValid, res.Valid)
			if !tt.wantValid {
				assert.NotEmpty(t, res.Errors)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	reg := BuildRegistry(zerolog.Nop())

	types := reg.Types()
	assert.Len(t, types, 17)
	assert.True(t, sort.StringsAreSorted(types))

	_, ok := reg.Get("card_teleported")
	assert.False(t, ok)

	all := reg.All()
	require.Len(t, all, len(types))
	for i, h := range all {
		assert.Equal(t, types[i], h.Type())
	}

	for _, h := range all {
		schema := h.ConfigSchema()
		assert.NotNil(t, schema.Fields, "schema fields for %s", h.Type())
	}
}
