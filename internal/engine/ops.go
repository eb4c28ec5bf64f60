package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"boardflow/internal/apperr"
	"boardflow/internal/domain"
)

// Domain operations shared by the HTTP API and the CLI. Each operation
// persists the change, then dispatches the resulting board event so rules
// react to it. Action handlers mutate cards through the repo directly and
// never come back through here, so rule runs cannot cascade into further
// rule runs.

// DefaultColumns is the column set a new board gets when none are given.
func DefaultColumns() []domain.Column {
	return []domain.Column{
		{ID: "todo", Label: "To Do", ColorKey: "slate", Position: 0},
		{ID: "in_progress", Label: "In Progress", ColorKey: "blue", Position: 1},
		{ID: "done", Label: "Done", ColorKey: "green", Position: 2},
	}
}

func (e Engine) CreateBoard(ctx context.Context, name string, columns []domain.Column) (domain.BoardData, error) {
	if len(columns) == 0 {
		columns = DefaultColumns()
	}
	b := domain.BoardData{
		ID:      uuid.NewString(),
		Name:    name,
		Columns: columns,
	}
	if err := e.Repo.InsertBoard(ctx, b, e.nowRFC3339()); err != nil {
		return domain.BoardData{}, fmt.Errorf("insert board: %w", err)
	}
	return b, nil
}

func (e Engine) CreateUser(ctx context.Context, name, email string) (domain.CardUser, error) {
	u := domain.CardUser{ID: uuid.NewString(), Name: name, Email: email}
	if err := e.Repo.InsertUser(ctx, u, e.nowRFC3339()); err != nil {
		return domain.CardUser{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// CardCreateOptions are parameters for creating a card.
type CardCreateOptions struct {
	BoardID     string
	ColumnID    string
	Title       string
	Description string
	Priority    string
	DueDate     *string
	AssigneeIDs []string
	Tags        []string
	ActorID     string
}

func (e Engine) CreateCard(ctx context.Context, opts CardCreateOptions) (domain.CardData, error) {
	board, err := e.Repo.GetBoardData(ctx, opts.BoardID)
	if err != nil {
		return domain.CardData{}, err
	}
	columnID := opts.ColumnID
	if columnID == "" && len(board.Columns) > 0 {
		columnID = board.Columns[0].ID
	}
	if !board.HasColumn(columnID) {
		return domain.CardData{}, fmt.Errorf("%w: %q", apperr.ErrInvalidColumn, columnID)
	}

	now := e.nowRFC3339()
	card := domain.CardData{
		ID:          uuid.NewString(),
		BoardID:     opts.BoardID,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      columnID,
		Priority:    opts.Priority,
		DueDate:     opts.DueDate,
		Tags:        opts.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, id := range opts.AssigneeIDs {
		card.Assignees = append(card.Assignees, domain.CardUser{ID: id})
	}
	if opts.ActorID != "" {
		card.CreatedBy = &domain.CardUser{ID: opts.ActorID}
	}
	if err := e.Repo.InsertCard(ctx, card); err != nil {
		return domain.CardData{}, fmt.Errorf("insert card: %w", err)
	}

	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardCreated,
		BoardID:     opts.BoardID,
		CardID:      card.ID,
		TriggeredBy: opts.ActorID,
		Payload:     map[string]any{"columnId": columnID},
	})
	if opts.DueDate != nil {
		e.Dispatch(ctx, domain.BoardEvent{
			Type:        domain.EventCardDueDateSet,
			BoardID:     opts.BoardID,
			CardID:      card.ID,
			TriggeredBy: opts.ActorID,
			Payload:     map[string]any{"dueDate": *opts.DueDate},
		})
	}
	return e.Repo.GetCardData(ctx, card.ID)
}

func (e Engine) MoveCardTo(ctx context.Context, cardID, columnID, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	board, err := e.Repo.GetBoardData(ctx, card.BoardID)
	if err != nil {
		return err
	}
	if !board.HasColumn(columnID) {
		return fmt.Errorf("%w: %q", apperr.ErrInvalidColumn, columnID)
	}
	if card.Status == columnID {
		return nil
	}
	if err := e.Repo.MoveCard(ctx, cardID, columnID, e.nowRFC3339()); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardMoved,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"fromColumnId": card.Status, "toColumnId": columnID},
	})
	return nil
}

func (e Engine) SetCardPriority(ctx context.Context, cardID, priority, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if card.Priority == priority {
		return nil
	}
	if err := e.Repo.SetPriority(ctx, cardID, priority, e.nowRFC3339()); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardPriorityChanged,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"oldPriority": card.Priority, "newPriority": priority},
	})
	return nil
}

func (e Engine) SetCardDueDate(ctx context.Context, cardID string, dueDate *string, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if err := e.Repo.SetDueDate(ctx, cardID, dueDate, e.nowRFC3339()); err != nil {
		return err
	}
	if dueDate == nil {
		return nil
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardDueDateSet,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"dueDate": *dueDate},
	})
	return nil
}

// UpdateCardText edits the title or description and reports which field
// changed on the resulting event.
func (e Engine) UpdateCardText(ctx context.Context, cardID, field, value, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	switch field {
	case "title":
		err = e.Repo.SetTitle(ctx, cardID, value, e.nowRFC3339())
	case "description":
		err = e.Repo.SetDescription(ctx, cardID, value, e.nowRFC3339())
	default:
		return fmt.Errorf("unknown card field %q", field)
	}
	if err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardUpdated,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"field": field},
	})
	return nil
}

func (e Engine) AssignCard(ctx context.Context, cardID, userID, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return err
	}
	if err := e.Repo.AssignUser(ctx, cardID, userID, e.nowRFC3339()); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardAssigned,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"userId": userID},
	})
	return nil
}

func (e Engine) UnassignCard(ctx context.Context, cardID, userID, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if err := e.Repo.UnassignUser(ctx, cardID, userID); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardUnassigned,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"userId": userID},
	})
	return nil
}

func (e Engine) AddCardTag(ctx context.Context, cardID, tag, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if err := e.Repo.AddTag(ctx, cardID, tag); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardTagAdded,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"tag": tag},
	})
	return nil
}

func (e Engine) RemoveCardTag(ctx context.Context, cardID, tag, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if err := e.Repo.RemoveTag(ctx, cardID, tag); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardTagRemoved,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"tag": tag},
	})
	return nil
}

func (e Engine) ArchiveCardByID(ctx context.Context, cardID, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	if card.Archived {
		return nil
	}
	if err := e.Repo.ArchiveCard(ctx, cardID, e.nowRFC3339()); err != nil {
		return err
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventCardArchived,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
	})
	return nil
}

// CompleteSubtask marks one subtask done and reports on the event whether
// that was the card's last open subtask.
func (e Engine) CompleteSubtask(ctx context.Context, cardID, subtaskID, actorID string) error {
	card, err := e.Repo.GetCardData(ctx, cardID)
	if err != nil {
		return err
	}
	changed, err := e.Repo.CompleteSubtask(ctx, cardID, subtaskID, e.nowRFC3339())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	subtasks, err := e.Repo.ListSubtasks(ctx, cardID)
	if err != nil {
		return err
	}
	allCompleted := true
	for _, s := range subtasks {
		if !s.Done {
			allCompleted = false
			break
		}
	}
	e.Dispatch(ctx, domain.BoardEvent{
		Type:        domain.EventSubtaskCompleted,
		BoardID:     card.BoardID,
		CardID:      cardID,
		TriggeredBy: actorID,
		Payload:     map[string]any{"subtaskId": subtaskID, "allCompleted": allCompleted},
	})
	return nil
}

// CreateRule validates and persists a new rule. Rules start active unless
// the caller says otherwise.
func (e Engine) CreateRule(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := e.nowRFC3339()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	rule.RunCount = 0
	rule.LastRunAt = nil
	rule.LastRunStatus = nil
	if err := e.ValidateRule(rule); err != nil {
		return domain.Rule{}, err
	}
	if _, err := e.Repo.GetBoardData(ctx, rule.BoardID); err != nil {
		return domain.Rule{}, err
	}
	if err := e.Repo.InsertRule(ctx, rule); err != nil {
		return domain.Rule{}, fmt.Errorf("insert rule: %w", err)
	}
	return rule, nil
}

// UpdateRuleDefinition replaces a rule's trigger, conditions, actions,
// and name. Run counters are preserved.
func (e Engine) UpdateRuleDefinition(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	existing, err := e.Repo.GetRule(ctx, rule.ID)
	if err != nil {
		return domain.Rule{}, err
	}
	rule.BoardID = existing.BoardID
	rule.RunCount = existing.RunCount
	rule.LastRunAt = existing.LastRunAt
	rule.LastRunStatus = existing.LastRunStatus
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = e.nowRFC3339()
	if err := e.ValidateRule(rule); err != nil {
		return domain.Rule{}, err
	}
	if err := e.Repo.UpdateRule(ctx, rule); err != nil {
		return domain.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	return rule, nil
}

func (e Engine) SetRuleActive(ctx context.Context, ruleID string, active bool) error {
	if _, err := e.Repo.GetRule(ctx, ruleID); err != nil {
		return err
	}
	return e.Repo.SetRuleActive(ctx, ruleID, active, e.nowRFC3339())
}
