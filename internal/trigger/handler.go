// Package trigger decides whether an incoming board event matches a rule's
// configured trigger. Handlers are pure functions of event + config: no
// I/O, no clocks. Time arithmetic (days in column, days until due) is
// precomputed by the scheduler into the event payload.
package trigger

import (
	"strconv"
	"strings"

	"boardflow/internal/domain"
)

// Handler matches board events against a trigger config.
type Handler interface {
	// Type returns the trigger type key stored in rule definitions.
	Type() string

	// Matches reports whether the event satisfies this trigger with the
	// given config. Must be pure.
	Matches(event domain.BoardEvent, config map[string]any) bool

	// Validate statically checks a trigger config for rule-authoring
	// tooling.
	Validate(config map[string]any) domain.ValidationResult

	// ConfigSchema describes the config fields for a rule-builder UI.
	ConfigSchema() domain.ConfigSchema
}

// configString reads a string config value, tolerating missing keys.
func configString(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	if s, ok := config[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// configNumber reads a numeric config value; JSON decoding yields float64
// but string digits are accepted too.
func configNumber(config map[string]any, key string) (float64, bool) {
	if config == nil {
		return 0, false
	}
	switch v := config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// payloadString reads a string payload value.
func payloadString(event domain.BoardEvent, key string) string {
	if event.Payload == nil {
		return ""
	}
	if s, ok := event.Payload[key].(string); ok {
		return s
	}
	return ""
}

// payloadNumber reads a numeric payload value.
func payloadNumber(event domain.BoardEvent, key string) (float64, bool) {
	if event.Payload == nil {
		return 0, false
	}
	switch v := event.Payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func payloadBool(event domain.BoardEvent, key string) bool {
	if event.Payload == nil {
		return false
	}
	b, _ := event.Payload[key].(bool)
	return b
}
