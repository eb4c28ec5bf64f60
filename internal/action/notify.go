package action

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"

	"boardflow/internal/domain"
)

func (d Deps) notify(ctx context.Context, userID, cardID, message string) error {
	return d.Repo.InsertNotification(ctx, domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		CardID:    cardID,
		Message:   message,
		CreatedAt: d.nowRFC3339(),
	})
}

// notifyUsers writes an in-app notification for each configured user.
type notifyUsers struct{ deps Deps }

func (notifyUsers) Type() string { return "notify_users" }

func (a notifyUsers) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	userIDs := configStrings(config, "userIds")
	message := configString(config, "message")
	if len(userIDs) == 0 || message == "" {
		return badConfig("userIds and message are required")
	}
	for _, userID := range userIDs {
		if err := a.deps.notify(ctx, userID, fc.Card.ID, message); err != nil {
			return execFailed(err)
		}
	}
	return succeeded(map[string]any{"notified": len(userIDs)})
}

func (notifyUsers) Validate(config map[string]any) domain.ValidationResult {
	var errs []string
	if len(configStrings(config, "userIds")) == 0 {
		errs = append(errs, "userIds is required")
	}
	if configString(config, "message") == "" {
		errs = append(errs, "message is required")
	}
	if len(errs) > 0 {
		return domain.InvalidConfig(errs...)
	}
	return domain.ValidConfig()
}

func (notifyUsers) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Notify %d user(s)", len(configStrings(config, "userIds")))
}

func (notifyUsers) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "userIds", Label: "Users", Type: "list", Required: true},
		{Key: "message", Label: "Message", Type: "string", Required: true, SupportsVariables: true},
	}}
}

// notifyCardAssignee notifies every current assignee. Cards without
// assignees are a no-op success.
type notifyCardAssignee struct{ deps Deps }

func (notifyCardAssignee) Type() string { return "notify_card_assignee" }

func (a notifyCardAssignee) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	message := configString(config, "message")
	if message == "" {
		return badConfig("message is required")
	}
	if len(fc.Card.Assignees) == 0 {
		return noop("Card has no assignee")
	}
	for _, u := range fc.Card.Assignees {
		if err := a.deps.notify(ctx, u.ID, fc.Card.ID, message); err != nil {
			return execFailed(err)
		}
	}
	return succeeded(map[string]any{"notified": len(fc.Card.Assignees)})
}

func (notifyCardAssignee) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "message") == "" {
		return domain.InvalidConfig("message is required")
	}
	return domain.ValidConfig()
}

func (notifyCardAssignee) Summarize(map[string]any, *domain.BoardData) string {
	return "Notify the card's assignees"
}

func (notifyCardAssignee) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "message", Label: "Message", Type: "string", Required: true, SupportsVariables: true},
	}}
}

// notifyCardCreator notifies the card's creator. Cards without a recorded
// creator are a no-op success.
type notifyCardCreator struct{ deps Deps }

func (notifyCardCreator) Type() string { return "notify_card_creator" }

func (a notifyCardCreator) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	message := configString(config, "message")
	if message == "" {
		return badConfig("message is required")
	}
	if fc.Card.CreatedBy == nil {
		return noop("Card has no creator recorded")
	}
	if err := a.deps.notify(ctx, fc.Card.CreatedBy.ID, fc.Card.ID, message); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"notified": 1})
}

func (notifyCardCreator) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "message") == "" {
		return domain.InvalidConfig("message is required")
	}
	return domain.ValidConfig()
}

func (notifyCardCreator) Summarize(map[string]any, *domain.BoardData) string {
	return "Notify the card's creator"
}

func (notifyCardCreator) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "message", Label: "Message", Type: "string", Required: true, SupportsVariables: true},
	}}
}

// notifyTeam notifies every known user. Membership is workspace-wide for
// now; per-board membership would narrow this.
type notifyTeam struct{ deps Deps }

func (notifyTeam) Type() string { return "notify_team" }

func (a notifyTeam) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	message := configString(config, "message")
	if message == "" {
		return badConfig("message is required")
	}
	users, err := a.deps.Repo.ListUsers(ctx)
	if err != nil {
		return execFailed(err)
	}
	if len(users) == 0 {
		return noop("No users to notify")
	}
	for _, u := range users {
		if err := a.deps.notify(ctx, u.ID, fc.Card.ID, message); err != nil {
			return execFailed(err)
		}
	}
	return succeeded(map[string]any{"notified": len(users)})
}

func (notifyTeam) Validate(config map[string]any) domain.ValidationResult {
	if configString(config, "message") == "" {
		return domain.InvalidConfig("message is required")
	}
	return domain.ValidConfig()
}

func (notifyTeam) Summarize(map[string]any, *domain.BoardData) string {
	return "Notify the whole team"
}

func (notifyTeam) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "message", Label: "Message", Type: "string", Required: true, SupportsVariables: true},
	}}
}

// sendEmail enqueues an email in the outbox; a dispatcher delivers it.
// An empty recipient after variable resolution (card without an assignee
// email, say) is a no-op success.
type sendEmail struct{ deps Deps }

func (sendEmail) Type() string { return "send_email" }

func (a sendEmail) Execute(ctx context.Context, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	to := configString(config, "to")
	subject := configString(config, "subject")
	if subject == "" {
		return badConfig("subject is required")
	}
	if to == "" {
		return noop("No recipient to email")
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return failed(CodeExecutionFailed, "recipient %q is not a valid email address", to)
	}
	email := domain.OutboxEmail{
		ID:        uuid.NewString(),
		Recipient: to,
		Subject:   subject,
		Body:      configString(config, "body"),
		Status:    "pending",
		CreatedAt: a.deps.nowRFC3339(),
	}
	if err := a.deps.Repo.InsertEmail(ctx, email); err != nil {
		return execFailed(err)
	}
	return succeeded(map[string]any{"email_id": email.ID, "recipient": to})
}

func (sendEmail) Validate(config map[string]any) domain.ValidationResult {
	var errs []string
	// "to" commonly holds a variable like the assignee's email, so only
	// its total absence is a static error.
	if configString(config, "to") == "" {
		errs = append(errs, "to is required")
	}
	if configString(config, "subject") == "" {
		errs = append(errs, "subject is required")
	}
	if len(errs) > 0 {
		return domain.InvalidConfig(errs...)
	}
	return domain.ValidConfig()
}

func (sendEmail) Summarize(config map[string]any, _ *domain.BoardData) string {
	return fmt.Sprintf("Email %s", configString(config, "to"))
}

func (sendEmail) ConfigSchema() domain.ConfigSchema {
	return domain.ConfigSchema{Fields: []domain.ConfigField{
		{Key: "to", Label: "Recipient", Type: "string", Required: true, SupportsVariables: true},
		{Key: "subject", Label: "Subject", Type: "string", Required: true, SupportsVariables: true},
		{Key: "body", Label: "Body", Type: "string", SupportsVariables: true},
	}}
}
