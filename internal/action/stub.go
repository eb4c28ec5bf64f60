package action

import (
	"context"
	"fmt"

	"boardflow/internal/domain"
)

// stubAction stands in for an action whose backing module (contracts,
// invoicing, AI) is not wired up yet. It always fails with a stable
// machine-readable code so rules referencing it surface cleanly in run
// logs instead of panicking or silently succeeding.
type stubAction struct {
	typ   string
	label string
	code  string
}

func (s stubAction) Type() string { return s.typ }

func (s stubAction) Execute(context.Context, map[string]any, *domain.FlowContext) domain.ActionResult {
	return failed(s.code, "%s is not available yet", s.label)
}

func (s stubAction) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (s stubAction) Summarize(map[string]any, *domain.BoardData) string {
	return fmt.Sprintf("%s (coming soon)", s.label)
}

func (s stubAction) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{ComingSoon: true}
}
