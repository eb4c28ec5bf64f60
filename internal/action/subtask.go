package action

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"boardflow/internal/domain"
)

// createSubtask adds one checklist item to the card.
type createSubtask struct{ deps Deps }

func (createSubtask) Type() string { return "create_subtask" }

func (a createSubtask) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	title := configString(config, "title")
	if title == "" {
		return badConfig("title is required")
	}
	now := a.deps.nowRFC3339()
	sub := domain.Subtask{
		ID:        uuid.NewString(),
		CardID:    fc.Card.ID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if userID := configString(config, "assigneeId"); userID != "" {
		sub.AssigneeID = &userID
	}
	if err := a.deps.Repo.InsertSubtask(ctx, sub); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"subtask_id": sub.ID, "title": title})
}

func (createSubtask) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "title") == "" {
		return domain.InvalidConfig("title is required")
	}
	return domain.ValidConfig()
}

func (createSubtask) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Create subtask %q", configString(config, "title"))
}

func (createSubtask) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "title", Label: "Title", Type: "string", Required: true, SupportsVariables: true},
		{Key: "assigneeId", Label: "Assignee", Type: "select"},
	}}
}

// createSubtasks adds a checklist of items in one step.
type createSubtasks struct{ deps Deps }

func (createSubtasks) Type() string { return "create_subtasks" }

func (a createSubtasks) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	titles := configStrings(config, "titles")
	if len(titles) == 0 {
		return badConfig("titles is required")
	}
	now := a.deps.nowRFC3339()
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		sub := domain.Subtask{
			ID:        uuid.NewString(),
			CardID:    fc.Card.ID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := a.deps.Repo.InsertSubtask(ctx, sub); err != nil {
			return execFailed(err)
		}
		ids = append(ids, sub.ID)
	}
	return succeeded(map[string]any{"subtask_ids": ids, "created": len(ids)})
}

func (createSubtasks) Validate(config map[string]any) domain.ValidationResult {
	if len(configStrings(config, "titles")) == 0 {
		return domain.InvalidConfig("titles is required")
	}
	return domain.ValidConfig()
}

func (createSubtasks) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Create %d subtask(s)", len(configStrings(config, "titles")))
}

func (createSubtasks) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "titles", Label: "Titles", Type: "list", Required: true, SupportsVariables: true},
	}}
}

// completeAllSubtasks marks every open subtask on the card done. Cards
// with no open subtasks are a no-op success.
type completeAllSubtasks struct{ deps Deps }

func (completeAllSubtasks) Type() string { return "complete_all_subtasks" }

func (a completeAllSubtasks) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	n, err := a.deps.Repo.CompleteAllSubtasks(ctx, fc.Card.ID, a.deps.nowRFC3339())
	if err != nil {
		return execFailed(err)
	}
	if n == 0 {
		return noop("Card has no open subtasks")
	}
	return succeeded(map[string]any{"completed": n})
}

func (completeAllSubtasks) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (completeAllSubtasks) Summarize(map[string]any, *domain.BoardData) string {
	return "Complete all subtasks"
}

func (completeAllSubtasks) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{}
}

// assignAllSubtasks sets the assignee on every subtask of the card.
type assignAllSubtasks struct{ deps Deps }

func (assignAllSubtasks) Type() string { return "assign_all_subtasks" }

func (a assignAllSubtasks) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	userID := configString(config, "userId")
	if userID == "" {
		return badConfig("userId is required")
	}
	n, err := a.deps.Repo.AssignAllSubtasks(ctx, fc.Card.ID, userID, a.deps.nowRFC3339())
	if err != nil {
		return execFailed(err)
	}
	if n == 0 {
		return noop("Card has no subtasks")
	}
	return succeeded(map[string]any{"assigned": n, "user_id": userID})
}

func (assignAllSubtasks) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "userId") == "" {
		return domain.InvalidConfig("userId is required")
	}
	return domain.ValidConfig()
}

func (assignAllSubtasks) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Assign all subtasks to %s", configString(config, "userId"))
}

func (assignAllSubtasks) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "userId", Label: "User", Type: "select", Required: true},
	}}
}
