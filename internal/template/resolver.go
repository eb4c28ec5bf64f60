// Package template substitutes {{path}} tokens in action config strings
// using the per-run flow context. Resolution never fails the caller: a token
// that cannot be resolved is left in the output byte for byte.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"boardflow/internal/domain"
)

// Resolver carries the ambient inputs templating needs beyond the flow
// context: the site base URL for card links and a clock for trigger.date.
type Resolver struct {
	SiteBaseURL string
	Now         func() time.Time
}

const triggerDateLayout = "2006-01-02 15:04"

// Resolve substitutes every {{...}} token in tmpl. Tokens that resolve to
// nothing stay verbatim; templating never errors and never silently drops
// a placeholder.
func (r Resolver) Resolve(tmpl string, fc *domain.FlowContext) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	var b strings.Builder
	b.Grow(len(tmpl))
	rest := tmpl
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.Index(rest[open+2:], "}}")
		if end < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:open])
		token := rest[open : open+2+end+2]
		path := strings.TrimSpace(rest[open+2 : open+2+end])
		if value, ok := r.resolvePath(path, fc); ok {
			b.WriteString(value)
		} else {
			b.WriteString(token)
		}
		rest = rest[open+2+end+2:]
	}
}

// ResolveConfig returns a copy of cfg with every string value resolved.
// Non-string values pass through untouched; nested maps and lists are
// walked so list-valued config (subtask titles, user ids) still supports
// variables.
func (r Resolver) ResolveConfig(cfg map[string]any, fc *domain.FlowContext) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = r.resolveValue(v, fc)
	}
	return out
}

func (r Resolver) resolveValue(v any, fc *domain.FlowContext) any {
	switch val := v.(type) {
	case string:
		return r.Resolve(val, fc)
	case map[string]any:
		return r.ResolveConfig(val, fc)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.resolveValue(item, fc)
		}
		return out
	default:
		return v
	}
}

func (r Resolver) resolvePath(path string, fc *domain.FlowContext) (string, bool) {
	if fc == nil || path == "" {
		return "", false
	}
	parts := strings.Split(path, ".")
	switch parts[0] {
	case "card":
		return r.resolveCard(parts[1:], fc)
	case "board":
		if len(parts) == 2 && parts[1] == "name" && fc.Board.Name != "" {
			return fc.Board.Name, true
		}
	case "trigger":
		return r.resolveTrigger(parts[1:], fc)
	case "step":
		return resolveStep(parts[1:], fc)
	}
	return "", false
}

func (r Resolver) resolveCard(parts []string, fc *domain.FlowContext) (string, bool) {
	if len(parts) == 0 {
		return "", false
	}
	card := fc.Card
	switch parts[0] {
	case "title":
		return card.Title, true
	case "description":
		return card.Description, true
	case "priority":
		return card.Priority, card.Priority != ""
	case "status", "column":
		// Display label, not the column id.
		return fc.Board.ColumnLabel(card.Status), card.Status != ""
	case "due_date":
		if card.DueDate == nil {
			return "", false
		}
		return *card.DueDate, true
	case "tags":
		if len(card.Tags) == 0 {
			return "", false
		}
		return strings.Join(card.Tags, ", "), true
	case "url":
		if r.SiteBaseURL == "" {
			return "", false
		}
		return fmt.Sprintf("%s/boards/%s/cards/%s", strings.TrimRight(r.SiteBaseURL, "/"), card.BoardID, card.ID), true
	case "assignee":
		if len(card.Assignees) == 0 || len(parts) != 2 {
			return "", false
		}
		return userField(card.Assignees[0], parts[1])
	case "creator":
		if card.CreatedBy == nil || len(parts) != 2 {
			return "", false
		}
		return userField(*card.CreatedBy, parts[1])
	case "field":
		if len(parts) < 2 {
			return "", false
		}
		name := strings.Join(parts[1:], ".")
		value, ok := card.CustomFields[name]
		return value, ok
	}
	return "", false
}

func (r Resolver) resolveTrigger(parts []string, fc *domain.FlowContext) (string, bool) {
	if len(parts) == 0 {
		return "", false
	}
	switch parts[0] {
	case "date":
		now := r.Now
		if now == nil {
			now = time.Now
		}
		return now().Format(triggerDateLayout), true
	case "user":
		if fc.TriggerUser == nil || len(parts) != 2 {
			return "", false
		}
		return userField(*fc.TriggerUser, parts[1])
	}
	return "", false
}

// resolveStep handles step.<N>.output.<key> against accumulated outputs.
func resolveStep(parts []string, fc *domain.FlowContext) (string, bool) {
	if len(parts) < 3 || parts[1] != "output" {
		return "", false
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return "", false
	}
	outputs, ok := fc.PreviousActionOutputs["step."+parts[0]]
	if !ok {
		return "", false
	}
	value, ok := outputs[strings.Join(parts[2:], ".")]
	if !ok || value == nil {
		return "", false
	}
	return stringify(value), true
}

func userField(u domain.CardUser, field string) (string, bool) {
	switch field {
	case "name":
		return u.Name, true
	case "email":
		return u.Email, u.Email != ""
	}
	return "", false
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
