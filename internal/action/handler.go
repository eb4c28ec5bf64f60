// Package action implements the side-effecting steps of a rule pipeline.
// Every handler reports its outcome as an ActionResult; failures are data,
// never panics, so the pipeline's continue/stop logic works uniformly.
package action

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"boardflow/internal/domain"
	"boardflow/internal/repo"
)

// Handler performs one action step.
type Handler interface {
	// Type returns the action type key stored in rule definitions.
	Type() string

	// Execute runs the step. The config has already been passed through
	// the variable resolver. May perform I/O and must honor ctx.
	Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult

	// Validate statically checks an action config for rule-authoring
	// tooling. Pure.
	Validate(config map[string]any) domain.ValidationResult

	// Summarize renders a human-readable description of the configured
	// step for audit views and the rule builder. The board context, when
	// present, resolves column ids to labels.
	Summarize(config map[string]any, board *domain.BoardData) string

	// ConfigSchema describes the config fields for a rule-builder UI.
	ConfigSchema() domain.ConfigSchema
}

// Deps is everything handlers need to touch the outside world. One value
// is shared by every handler built by BuildRegistry.
type Deps struct {
	Repo   repo.Repo
	Now    func() time.Time
	Logger zerolog.Logger
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) nowRFC3339() string {
	return d.now().UTC().Format(time.RFC3339)
}

// Stable machine-readable error codes carried on failed ActionResults.
const (
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeExecutionFailed = "EXECUTION_FAILED"
	CodeUnknownAction   = "UNKNOWN_ACTION_TYPE"
	CodeStepTimeout     = "STEP_TIMEOUT"

	CodeContractNotImplemented = "CONTRACT_MODULE_NOT_IMPLEMENTED"
	CodeInvoiceNotImplemented  = "INVOICE_MODULE_NOT_IMPLEMENTED"
	CodeAINotImplemented       = "AI_MODULE_NOT_IMPLEMENTED"
)

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

// configStrings reads a list config value: a JSON array of strings or a
// comma-separated string.
func configStrings(config map[string]any, key string) []string {
	if config == nil {
		return nil
	}
	var out []string
	switch v := config[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) != "" {
				out = append(out, strings.TrimSpace(part))
			}
		}
	}
	return out
}

func succeeded(output map[string]any) domain.ActionResult {
	return domain.ActionResult{Success: true, Output: output}
}

// noop reports a graceful no-op: a missing precondition (no assignee, no
// subtasks) is a success with an explanatory detail, never a failure, so
// it does not stop the pipeline.
func noop(details string) domain.ActionResult {
	return domain.ActionResult{Success: true, Details: details}
}

func failed(code, format string, args ...any) domain.ActionResult {
	return domain.ActionResult{Success: false, ErrorCode: code, Error: fmt.Sprintf(format, args...)}
}

func badConfig(format string, args ...any) domain.ActionResult {
	return failed(CodeInvalidConfig, format, args...)
}

func execFailed(err error) domain.ActionResult {
	return failed(CodeExecutionFailed, "%v", err)
}
