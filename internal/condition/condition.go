// Package condition evaluates rule conditions against a card snapshot.
// The operator set is closed; all conditions on a rule are AND-ed and an
// empty list always passes.
package condition

import (
	"strconv"
	"strings"

	"boardflow/internal/domain"
)

// Operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpIsEmpty     = "is_empty"
	OpIsNotEmpty  = "is_not_empty"
	OpIsOneOf     = "is_one_of"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIsSet       = "is_set"
	OpIsNotSet    = "is_not_set"
)

// Operators lists every supported operator, for validation tooling.
func Operators() []string {
	return []string{
		OpEquals, OpNotEquals, OpContains, OpNotContains,
		OpIsEmpty, OpIsNotEmpty, OpIsOneOf,
		OpGreaterThan, OpLessThan, OpIsSet, OpIsNotSet,
	}
}

// Fields lists the resolvable condition fields (custom fields use the
// custom.<name> form and are not enumerable).
func Fields() []string {
	return []string{
		"title", "description", "priority", "status",
		"assignee", "assignee_name", "due_date", "tags", "creator",
	}
}

// Check evaluates all conditions against the card. A malformed condition
// (unknown field or operator, bad coercion) evaluates false on its own; it
// never aborts the evaluation of the rule.
func Check(conditions []domain.Condition, card domain.CardData) bool {
	for _, c := range conditions {
		if !evaluate(c, card) {
			return false
		}
	}
	return true
}

// fieldValue resolves a condition field to its card value. The second
// return is false when the field name itself is unknown.
func fieldValue(field string, card domain.CardData) (any, bool) {
	if name, ok := strings.CutPrefix(field, "custom."); ok {
		value, present := card.CustomFields[name]
		if !present {
			return nil, true
		}
		return value, true
	}
	switch field {
	case "title":
		return card.Title, true
	case "description":
		return card.Description, true
	case "priority":
		return card.Priority, true
	case "status":
		return card.Status, true
	case "assignee":
		ids := make([]string, 0, len(card.Assignees))
		for _, u := range card.Assignees {
			ids = append(ids, u.ID)
		}
		return ids, true
	case "assignee_name":
		names := make([]string, 0, len(card.Assignees))
		for _, u := range card.Assignees {
			names = append(names, u.Name)
		}
		return names, true
	case "due_date":
		if card.DueDate == nil {
			return nil, true
		}
		return *card.DueDate, true
	case "tags":
		return card.Tags, true
	case "creator":
		if card.CreatedBy == nil {
			return nil, true
		}
		return card.CreatedBy.ID, true
	}
	return nil, false
}

func evaluate(c domain.Condition, card domain.CardData) bool {
	value, known := fieldValue(c.Field, card)
	if !known {
		return false
	}
	switch c.Operator {
	case OpIsEmpty, OpIsNotSet:
		return isEmpty(value)
	case OpIsNotEmpty, OpIsSet:
		return !isEmpty(value)
	case OpEquals:
		return equals(value, c.Value)
	case OpNotEquals:
		return !equals(value, c.Value)
	case OpContains:
		return contains(value, c.Value)
	case OpNotContains:
		return !contains(value, c.Value)
	case OpIsOneOf:
		return isOneOf(value, c.Value)
	case OpGreaterThan:
		fv, cv, ok := numericPair(value, c.Value)
		return ok && fv > cv
	case OpLessThan:
		fv, cv, ok := numericPair(value, c.Value)
		return ok && fv < cv
	}
	return false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// String coercion, matching the per-operator mix the engine has always
// had: equals/contains stringify, greater_than/less_than go numeric.
func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, ",")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func equals(field, expected any) bool {
	return strings.EqualFold(toString(field), toString(expected))
}

func contains(field, expected any) bool {
	needle := toString(expected)
	if needle == "" {
		return false
	}
	switch val := field.(type) {
	case []string:
		for _, item := range val {
			if strings.EqualFold(item, needle) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(strings.ToLower(toString(field)), strings.ToLower(needle))
	}
}

func isOneOf(field, expected any) bool {
	var options []string
	switch val := expected.(type) {
	case []any:
		for _, item := range val {
			options = append(options, toString(item))
		}
	case []string:
		options = val
	case string:
		options = strings.Split(val, ",")
	default:
		return false
	}
	have := toString(field)
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), have) {
			return true
		}
	}
	return false
}

// numericPair coerces both sides to float64; a failed parse makes the
// condition false rather than aborting the run.
func numericPair(field, expected any) (float64, float64, bool) {
	fv, ok := toFloat(field)
	if !ok {
		return 0, 0, false
	}
	cv, ok := toFloat(expected)
	if !ok {
		return 0, 0, false
	}
	return fv, cv, true
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}
