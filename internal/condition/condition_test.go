package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardflow/internal/condition"
	"boardflow/internal/domain"
)

func sampleCard() domain.CardData {
	due := "2026-03-01T00:00:00Z"
	return domain.CardData{
		ID:       "card-1",
		BoardID:  "board-1",
		Title:    "Fix login crash",
		Status:   "in_progress",
		Priority: "high",
		DueDate:  &due,
		Assignees: []domain.CardUser{
			{ID: "u1", Name: "Dana", Email: "dana@example.com"},
			{ID: "u2", Name: "Lee"},
		},
		Tags: []string{"bug", "auth"},
		CustomFields: map[string]string{
			"points":   "8",
			"customer": "Acme",
		},
	}
}

func TestEvaluateOperators(t *testing.T) {
	card := sampleCard()
	tests := []struct {
		name string
		cond domain.Condition
		want bool
	}{
		{"equals match", domain.Condition{Field: "priority", Operator: condition.OpEquals, Value: "high"}, true},
		{"equals case insensitive", domain.Condition{Field: "priority", Operator: condition.OpEquals, Value: "HIGH"}, true},
		{"equals mismatch", domain.Condition{Field: "priority", Operator: condition.OpEquals, Value: "low"}, false},
		{"not equals", domain.Condition{Field: "status", Operator: condition.OpNotEquals, Value: "done"}, true},
		{"contains substring in title", domain.Condition{Field: "title", Operator: condition.OpContains, Value: "login"}, true},
		{"contains tag member", domain.Condition{Field: "tags", Operator: condition.OpContains, Value: "bug"}, true},
		{"not contains", domain.Condition{Field: "tags", Operator: condition.OpNotContains, Value: "design"}, true},
		{"is empty on missing field value", domain.Condition{Field: "description", Operator: condition.OpIsEmpty}, true},
		{"is not empty", domain.Condition{Field: "due_date", Operator: condition.OpIsNotEmpty}, true},
		{"greater than numeric custom field", domain.Condition{Field: "custom.points", Operator: condition.OpGreaterThan, Value: float64(5)}, true},
		{"less than fails", domain.Condition{Field: "custom.points", Operator: condition.OpLessThan, Value: float64(5)}, false},
		{"greater than non-numeric is false", domain.Condition{Field: "title", Operator: condition.OpGreaterThan, Value: float64(1)}, false},
		{"is one of list", domain.Condition{Field: "priority", Operator: condition.OpIsOneOf, Value: []any{"high", "urgent"}}, true},
		{"is one of comma string", domain.Condition{Field: "status", Operator: condition.OpIsOneOf, Value: "todo,in_progress"}, true},
		{"is one of miss", domain.Condition{Field: "priority", Operator: condition.OpIsOneOf, Value: []any{"low"}}, false},
		{"assignee by id", domain.Condition{Field: "assignee", Operator: condition.OpContains, Value: "u1"}, true},
		{"assignee name", domain.Condition{Field: "assignee_name", Operator: condition.OpContains, Value: "Dana"}, true},
		{"custom field equals", domain.Condition{Field: "custom.customer", Operator: condition.OpEquals, Value: "acme"}, true},
		{"unknown field is false", domain.Condition{Field: "story_points", Operator: condition.OpEquals, Value: "8"}, false},
		{"unknown operator is false", domain.Condition{Field: "priority", Operator: "matches_regex", Value: ".*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := condition.Check([]domain.Condition{tt.cond}, card)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckAndSemantics(t *testing.T) {
	card := sampleCard()

	require.True(t, condition.Check(nil, card), "no conditions always passes")

	all := []domain.Condition{
		{Field: "priority", Operator: condition.OpEquals, Value: "high"},
		{Field: "tags", Operator: condition.OpContains, Value: "bug"},
	}
	assert.True(t, condition.Check(all, card))

	mixed := append(all, domain.Condition{Field: "status", Operator: condition.OpEquals, Value: "done"})
	assert.False(t, condition.Check(mixed, card), "one failing condition fails the rule")
}

func TestNumericCoercion(t *testing.T) {
	card := domain.CardData{CustomFields: map[string]string{"estimate": "3.5"}}

	assert.True(t, condition.Check([]domain.Condition{
		{Field: "custom.estimate", Operator: condition.OpGreaterThan, Value: "3"},
	}, card), "string numbers coerce for comparison")

	assert.False(t, condition.Check([]domain.Condition{
		{Field: "custom.estimate", Operator: condition.OpLessThan, Value: "many"},
	}, card), "unparseable comparison value is false, not an error")
}

func TestOperatorAndFieldLists(t *testing.T) {
	require.Contains(t, condition.Operators(), condition.OpIsOneOf)
	require.Contains(t, condition.Fields(), "priority")
}
