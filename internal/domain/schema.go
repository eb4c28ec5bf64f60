package domain

// ConfigSchema is declarative handler metadata consumed by rule-building
// tooling, never by the engine's runtime logic.
type ConfigSchema struct {
	Fields     []ConfigField `json:"fields"`
	ComingSoon bool          `json:"coming_soon,omitempty"`
}

// ConfigField describes one config key of a trigger or action handler.
type ConfigField struct {
	Key               string   `json:"key"`
	Label             string   `json:"label"`
	Type              string   `json:"type" enum:"string,number,boolean,select,list"`
	Required          bool     `json:"required,omitempty"`
	SupportsVariables bool     `json:"supports_variables,omitempty"`
	Options           []string `json:"options,omitempty"`
	DefaultValue      any      `json:"default_value,omitempty"`
}

// ValidationResult is the outcome of statically validating a handler
// config, surfaced to rule-authoring tooling before execution.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidConfig is the zero-error validation result.
func ValidConfig() ValidationResult {
	return ValidationResult{Valid: true}
}

// InvalidConfig builds a failed validation result from error messages.
func InvalidConfig(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}
