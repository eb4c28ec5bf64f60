package action

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"boardflow/internal/domain"
	"boardflow/internal/repo"
)

// moveCard moves the card to a configured column.
type moveCard struct{ deps Deps }

func (moveCard) Type() string { return "move_card" }

func (a moveCard) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	columnID := configString(config, "columnId")
	if columnID == "" {
		return badConfig("columnId is required")
	}
	if !fc.Board.HasColumn(columnID) {
		return failed(CodeExecutionFailed, "column %q does not exist on board %s", columnID, fc.Board.ID)
	}
	if fc.Card.Status == columnID {
		return noop(fmt.Sprintf("Card is already in %q", fc.Board.ColumnLabel(columnID)))
	}
	if err := a.deps.Repo.MoveCard(ctx, fc.Card.ID, columnID, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{
		"column_id":    columnID,
		"column_label": fc.Board.ColumnLabel(columnID),
	})
}

func (moveCard) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "columnId") == "" {
		return domain.InvalidConfig("columnId is required")
	}
	return domain.ValidConfig()
}

func (moveCard) Summarize(config map[string]any, board *domain.BoardData) string {
	label := configString(config, "columnId")
	if board != nil {
		label = board.ColumnLabel(label)
	}
	return fmt.Sprintf("Move card to %q", label)
}

func (moveCard) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "columnId", Label: "Target column", Type: "select", Required: true},
	}}
}

// moveCardToTop bumps the card to the first position within its column.
type moveCardToTop struct{ deps Deps }

func (moveCardToTop) Type() string { return "move_card_to_top" }

func (a moveCardToTop) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	if err := a.deps.Repo.MoveCardToTop(ctx, fc.Card.ID, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(nil)
}

func (moveCardToTop) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (moveCardToTop) Summarize(map[string]any, *domain.BoardData) string {
	return "Move card to top of its column"
}

func (moveCardToTop) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{}
}

// assignUser assigns a configured user to the card. Assigning an already
// assigned user is a no-op success.
type assignUser struct{ deps Deps }

func (assignUser) Type() string { return "assign_user" }

func (a assignUser) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	userID := configString(config, "userId")
	if userID == "" {
		return badConfig("userId is required")
	}
	user, err := a.deps.Repo.GetUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return failed(CodeExecutionFailed, "user %q does not exist", userID)
	}
	if err != nil {
		return execFailed(err)
	}
	for _, u := range fc.Card.Assignees {
		if u.ID == userID {
			return noop(fmt.Sprintf("%s is already assigned", user.Name))
		}
	}
	if err := a.deps.Repo.AssignUser(ctx, fc.Card.ID, userID, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"user_id": userID, "user_name": user.Name})
}

func (assignUser) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "userId") == "" {
		return domain.InvalidConfig("userId is required")
	}
	return domain.ValidConfig()
}

func (assignUser) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Assign user %s", configString(config, "userId"))
}

func (assignUser) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "userId", Label: "User", Type: "select", Required: true},
	}}
}

// unassignUser removes one assignee, or every assignee when no userId is
// configured.
type unassignUser struct{ deps Deps }

func (unassignUser) Type() string { return "unassign_user" }

func (a unassignUser) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	if len(fc.Card.Assignees) == 0 {
		return noop("Card has no assignees")
	}
	userID := configString(config, "userId")
	if userID == "" {
		if err := a.deps.Repo.UnassignAll(ctx, fc.Card.ID); err != nil {
			return execFailed(err)
		}
		return succeeded(map[string]any{"removed": len(fc.Card.Assignees)})
	}
	assigned := false
	for _, u := range fc.Card.Assignees {
		if u.ID == userID {
			assigned = true
			break
		}
	}
	if !assigned {
		return noop("User is not assigned to this card")
	}
	if err := a.deps.Repo.UnassignUser(ctx, fc.Card.ID, userID); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"removed": 1})
}

func (unassignUser) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (unassignUser) Summarize(config map[string]any, _ *domain.BoardData) string {
	if userID := configString(config, "userId"); userID != "" {
		return fmt.Sprintf("Unassign user %s", userID)
	}
	return "Unassign all users"
}

func (unassignUser) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "userId", Label: "User (leave empty for all)", Type: "select"},
	}}
}

// assignCreator assigns the card's creator. Cards without a recorded
// creator are a no-op success.
type assignCreator struct{ deps Deps }

func (assignCreator) Type() string { return "assign_creator" }

func (a assignCreator) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	if fc.Card.CreatedBy == nil {
		return noop("Card has no creator recorded")
	}
	creator := *fc.Card.CreatedBy
	for _, u := range fc.Card.Assignees {
		if u.ID == creator.ID {
			return noop(fmt.Sprintf("%s is already assigned", creator.Name))
		}
	}
	if err := a.deps.Repo.AssignUser(ctx, fc.Card.ID, creator.ID, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"user_id": creator.ID, "user_name": creator.Name})
}

func (assignCreator) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (assignCreator) Summarize(map[string]any, *domain.BoardData) string {
	return "Assign the card's creator"
}

func (assignCreator) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{}
}

// setPriority sets the card priority to one of the known levels.
type setPriority struct{ deps Deps }

func (setPriority) Type() string { return "set_priority" }

func (a setPriority) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	priority := configString(config, "priority")
	if !validPriority(priority) {
		return badConfig("priority must be one of low, medium, high, urgent")
	}
	if fc.Card.Priority == priority {
		return noop(fmt.Sprintf("Priority is already %s", priority))
	}
	if err := a.deps.Repo.SetPriority(ctx, fc.Card.ID, priority, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"priority": priority})
}

func (setPriority) Validate(config map[string]any) domain.ValidationResult {
	if !validPriority(configString(config, "priority")) {
		return domain.InvalidConfig("priority must be one of low, medium, high, urgent")
	}
	return domain.ValidConfig()
}

func (setPriority) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Set priority to %s", configString(config, "priority"))
}

func (setPriority) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "priority", Label: "Priority", Type: "select", Required: true,
			Options: []string{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent}},
	}}
}

func validPriority(p string) bool {
	switch p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent:
		return true
	}
	return false
}

// setDueDate sets an absolute due date or one relative to now.
type setDueDate struct{ deps Deps }

func (setDueDate) Type() string { return "set_due_date" }

func (a setDueDate) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	due, err := a.resolveDue(config)
	if err != nil {
		return badConfig("%v", err)
	}
	if err := a.deps.Repo.SetDueDate(ctx, fc.Card.ID, &due, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"due_date": due})
}

func (a setDueDate) resolveDue(config map[string]any) (string, error) {
	if days, ok := configNumber(config, "daysFromNow"); ok {
		return a.deps.now().UTC().AddDate(0, 0, int(days)).Format(time.RFC3339), nil
	}
	raw := configString(config, "dueDate")
	if raw == "" {
		return "", errors.New("one of dueDate or daysFromNow is required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("dueDate %q is not a valid date", raw)
}

func (a setDueDate) Validate(config map[string]any) domain.ValidationResult {
	// daysFromNow may come from a template variable at execution time, so
	// only the all-empty case is a static error.
	if _, ok := configNumber(config, "daysFromNow"); ok {
		return domain.ValidConfig()
	}
	if configString(config, "dueDate") == "" {
		return domain.InvalidConfig("one of dueDate or daysFromNow is required")
	}
	return domain.ValidConfig()
}

func (setDueDate) Summarize(config map[string]any, _ *domain.BoardData) string {
	if days, ok := configNumber(config, "daysFromNow"); ok {
		return fmt.Sprintf("Set due date to %d day(s) from now", int(days))
	}
	return fmt.Sprintf("Set due date to %s", configString(config, "dueDate"))
}

func (setDueDate) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "dueDate", Label: "Due date", Type: "string", SupportsVariables: true},
		{Key: "daysFromNow", Label: "Days from now", Type: "number"},
	}}
}

// clearDueDate removes the card's due date.
type clearDueDate struct{ deps Deps }

func (clearDueDate) Type() string { return "clear_due_date" }

func (a clearDueDate) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	if fc.Card.DueDate == nil {
		return noop("Card has no due date")
	}
	if err := a.deps.Repo.SetDueDate(ctx, fc.Card.ID, nil, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(nil)
}

func (clearDueDate) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (clearDueDate) Summarize(map[string]any, *domain.BoardData) string {
	return "Clear the due date"
}

func (clearDueDate) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{}
}

// setCustomField upserts one custom field on the card.
type setCustomField struct{ deps Deps }

func (setCustomField) Type() string { return "set_custom_field" }

func (a setCustomField) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	name := configString(config, "fieldName")
	if name == "" {
		return badConfig("fieldName is required")
	}
	value := configString(config, "value")
	if err := a.deps.Repo.SetCustomField(ctx, fc.Card.ID, name, value); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"field_name": name, "value": value})
}

func (setCustomField) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "fieldName") == "" {
		return domain.InvalidConfig("fieldName is required")
	}
	return domain.ValidConfig()
}

func (setCustomField) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Set field %q to %q", configString(config, "fieldName"), configString(config, "value"))
}

func (setCustomField) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "fieldName", Label: "Field name", Type: "string", Required: true},
		{Key: "value", Label: "Value", Type: "string", SupportsVariables: true},
	}}
}

// addTag adds a tag; already-present tags are a no-op success.
type addTag struct{ deps Deps }

func (addTag) Type() string { return "add_tag" }

func (a addTag) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	tag := configString(config, "tag")
	if tag == "" {
		return badConfig("tag is required")
	}
	for _, t := range fc.Card.Tags {
		if strings.EqualFold(t, tag) {
			return noop(fmt.Sprintf("Card already has tag %q", tag))
		}
	}
	if err := a.deps.Repo.AddTag(ctx, fc.Card.ID, tag); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"tag": tag})
}

func (addTag) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "tag") == "" {
		return domain.InvalidConfig("tag is required")
	}
	return domain.ValidConfig()
}

func (addTag) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Add tag %q", configString(config, "tag"))
}

func (addTag) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "tag", Label: "Tag", Type: "string", Required: true, SupportsVariables: true},
	}}
}

// removeTag removes a tag; absent tags are a no-op success.
type removeTag struct{ deps Deps }

func (removeTag) Type() string { return "remove_tag" }

func (a removeTag) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	tag := configString(config, "tag")
	if tag == "" {
		return badConfig("tag is required")
	}
	present := false
	for _, t := range fc.Card.Tags {
		if strings.EqualFold(t, tag) {
			present = true
			tag = t
			break
		}
	}
	if !present {
		return noop(fmt.Sprintf("Card does not have tag %q", tag))
	}
	if err := a.deps.Repo.RemoveTag(ctx, fc.Card.ID, tag); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"tag": tag})
}

func (removeTag) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "tag") == "" {
		return domain.InvalidConfig("tag is required")
	}
	return domain.ValidConfig()
}

func (removeTag) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Remove tag %q", configString(config, "tag"))
}

func (removeTag) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "tag", Label: "Tag", Type: "string", Required: true, SupportsVariables: true},
	}}
}

// setTitlePrefix prepends a marker to the card title, once.
type setTitlePrefix struct{ deps Deps }

func (setTitlePrefix) Type() string { return "set_title_prefix" }

func (a setTitlePrefix) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	prefix := configString(config, "prefix")
	if prefix == "" {
		return badConfig("prefix is required")
	}
	if strings.HasPrefix(fc.Card.Title, prefix) {
		return noop("Title already carries the prefix")
	}
	title := prefix + " " + fc.Card.Title
	if err := a.deps.Repo.SetTitle(ctx, fc.Card.ID, title, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"title": title})
}

func (setTitlePrefix) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "prefix") == "" {
		return domain.InvalidConfig("prefix is required")
	}
	return domain.ValidConfig()
}

func (setTitlePrefix) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Prefix title with %q", configString(config, "prefix"))
}

func (setTitlePrefix) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "prefix", Label: "Prefix", Type: "string", Required: true},
	}}
}

// updateDescription replaces or appends to the card description.
type updateDescription struct{ deps Deps }

func (updateDescription) Type() string { return "update_description" }

func (a updateDescription) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	text := configString(config, "description")
	if text == "" {
		return badConfig("description is required")
	}
	mode := configString(config, "mode")
	if mode == "" {
		mode = "replace"
	}
	description := text
	switch mode {
	case "replace":
	case "append":
		if fc.Card.Description != "" {
			description = fc.Card.Description + "\n\n" + text
		}
	default:
		return badConfig("mode must be replace or append")
	}
	if err := a.deps.Repo.SetDescription(ctx, fc.Card.ID, description, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(nil)
}

func (updateDescription) Validate(config map[string]any) domain.ValidationResult {
	var errs []string
	if configString(config, "description") == "" {
		errs = append(errs, "description is required")
	}
	switch configString(config, "mode") {
	case "", "replace", "append":
	default:
		errs = append(errs, "mode must be replace or append")
	}
	if len(errs) > 0 {
		return domain.InvalidConfig(errs...)
	}
	return domain.ValidConfig()
}

func (updateDescription) Summarize(config map[string]any, _ *domain.BoardData) string {
	if configString(config, "mode") == "append" {
		return "Append to the description"
	}
	return "Replace the description"
}

func (updateDescription) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "description", Label: "Description", Type: "string", Required: true, SupportsVariables: true},
		{Key: "mode", Label: "Mode", Type: "select", Options: []string{"replace", "append"}, DefaultValue: "replace"},
	}}
}

// archiveCard archives the card; an already archived card is a no-op.
type archiveCard struct{ deps Deps }

func (archiveCard) Type() string { return "archive_card" }

func (a archiveCard) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	if fc.Card.Archived {
		return noop("Card is already archived")
	}
	if err := a.deps.Repo.ArchiveCard(ctx, fc.Card.ID, a.deps.nowRFC3339()); err != nil {
		return execFailed(err)
	}
	return succeeded(nil)
}

func (archiveCard) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (archiveCard) Summarize(map[string]any, *domain.BoardData) string {
	return "Archive the card"
}

func (archiveCard) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{}
}

// copyCard duplicates the card into a target column (default: the card's
// current column). Assignees are not copied; tags and custom fields are.
type copyCard struct{ deps Deps }

func (copyCard) Type() string { return "copy_card" }

func (a copyCard) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	columnID := configString(config, "targetColumnId")
	if columnID == "" {
		columnID = fc.Card.Status
	}
	if !fc.Board.HasColumn(columnID) {
		return failed(CodeExecutionFailed, "column %q does not exist on board %s", columnID, fc.Board.ID)
	}
	newID, err := a.deps.Repo.CopyCard(ctx, fc.Card.ID, columnID, a.deps.nowRFC3339())
	if err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{
		"card_id":      newID,
		"column_id":    columnID,
		"column_label": fc.Board.ColumnLabel(columnID),
	})
}

func (copyCard) Validate(map[string]any) domain.ValidationResult {
	return domain.ValidConfig()
}

func (copyCard) Summarize(config map[string]any, board *domain.BoardData) string {
	columnID := configString(config, "targetColumnId")
	if columnID == "" {
		return "Copy the card in place"
	}
	label := columnID
	if board != nil {
		label = board.ColumnLabel(columnID)
	}
	return fmt.Sprintf("Copy the card to %q", label)
}

func (copyCard) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "targetColumnId", Label: "Target column", Type: "select"},
	}}
}
