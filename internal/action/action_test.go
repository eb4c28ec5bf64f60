package action_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardflow/internal/action"
	"boardflow/internal/db"
	"boardflow/internal/domain"
	"boardflow/internal/migrate"
	"boardflow/internal/repo"
)

var fixedNow = time.Date(2026, 2, 20, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	Repo     repo.Repo
	Registry *action.Registry
	Ctx      context.Context
	Board    domain.BoardData
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	r := repo.Repo{DB: conn}
	reg := action.BuildRegistry(action.Deps{
		Repo:   r,
		Now:    func() time.Time { return fixedNow },
		Logger: zerolog.Nop(),
	})
	ctx := context.Background()

	board := domain.BoardData{
		ID:   "board-1",
		Name: "test board",
		Columns: []domain.Column{
			{ID: "todo", Label: "To Do", Position: 0},
			{ID: "done", Label: "Done", Position: 1},
		},
	}
	require.NoError(t, r.InsertBoard(ctx, board, fixedNow.Format(time.RFC3339)))
	return testEnv{Repo: r, Registry: reg, Ctx: ctx, Board: board}
}

func (env testEnv) insertCard(t *testing.T, card domain.CardData) domain.CardData {
	t.Helper()
	if card.BoardID == "" {
		card.BoardID = env.Board.ID
	}
	if card.Status == "" {
		card.Status = "todo"
	}
	now := fixedNow.Format(time.RFC3339)
	card.CreatedAt, card.UpdatedAt = now, now
	require.NoError(t, env.Repo.InsertCard(env.Ctx, card))
	fresh, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	return fresh
}

func (env testEnv) insertUser(t *testing.T, id, name, email string) domain.CardUser {
	t.Helper()
	u := domain.CardUser{ID: id, Name: name, Email: email}
	require.NoError(t, env.Repo.InsertUser(env.Ctx, u, fixedNow.Format(time.RFC3339)))
	return u
}

func (env testEnv) execute(t *testing.T, actionType string, config map[string]any, fc *domain.FlowContext) domain.ActionResult {
	t.Helper()
	h, ok := env.Registry.Get(actionType)
	require.True(t, ok, "handler %s not registered", actionType)
	if fc.Board.ID == "" {
		fc.Board = env.Board
	}
	return h.Execute(env.Ctx, config, fc)
}

func TestMoveCard(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "move me"})

	res := env.execute(t, "move_card", map[string]any{"columnId": "done"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "done", res.Output["column_id"])
	assert.Equal(t, "Done", res.Output["column_label"])

	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "done", got.Status)

	// already there: no-op success
	res = env.execute(t, "move_card", map[string]any{"columnId": "done"}, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
	assert.Empty(t, res.Output)
}

func TestMoveCardRejectsUnknownColumn(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "stay"})

	res := env.execute(t, "move_card", map[string]any{"columnId": "limbo"}, &domain.FlowContext{Card: card})
	assert.False(t, res.Success)
	assert.Equal(t, action.CodeExecutionFailed, res.ErrorCode)

	res = env.execute(t, "move_card", map[string]any{}, &domain.FlowContext{Card: card})
	assert.False(t, res.Success)
	assert.Equal(t, action.CodeInvalidConfig, res.ErrorCode)
}

func TestAssignAndUnassign(t *testing.T) {
	env := newTestEnv(t)
	user := env.insertUser(t, "u1", "Ada", "ada@example.com")
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "work"})

	res := env.execute(t, "assign_user", map[string]any{"userId": user.ID}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Ada", res.Output["user_name"])

	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, got.Assignees, 1)

	// assigning again is a no-op success
	res = env.execute(t, "assign_user", map[string]any{"userId": user.ID}, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)

	// unknown user fails
	res = env.execute(t, "assign_user", map[string]any{"userId": "ghost"}, &domain.FlowContext{Card: got})
	assert.False(t, res.Success)
	assert.Equal(t, action.CodeExecutionFailed, res.ErrorCode)

	// unassign everyone
	res = env.execute(t, "unassign_user", nil, &domain.FlowContext{Card: got})
	require.True(t, res.Success)
	got, err = env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Assignees)

	// no assignees left: no-op success
	res = env.execute(t, "unassign_user", nil, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestAssignCreator(t *testing.T) {
	env := newTestEnv(t)
	creator := env.insertUser(t, "u1", "Grace", "grace@example.com")
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "mine", CreatedBy: &domain.CardUser{ID: creator.ID}})

	res := env.execute(t, "assign_creator", nil, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)

	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, got.Assignees, 1)
	assert.Equal(t, creator.ID, got.Assignees[0].ID)

	orphan := env.insertCard(t, domain.CardData{ID: "c2", Title: "no creator"})
	res = env.execute(t, "assign_creator", nil, &domain.FlowContext{Card: orphan})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestSetDueDate(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "deadline"})

	res := env.execute(t, "set_due_date", map[string]any{"daysFromNow": float64(3)}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "2026-02-23T09:30:00Z", res.Output["due_date"])

	res = env.execute(t, "set_due_date", map[string]any{"dueDate": "2026-04-01"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "2026-04-01T00:00:00Z", res.Output["due_date"])

	res = env.execute(t, "set_due_date", map[string]any{"dueDate": "next tuesday"}, &domain.FlowContext{Card: card})
	assert.False(t, res.Success)
	assert.Equal(t, action.CodeInvalidConfig, res.ErrorCode)

	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)

	res = env.execute(t, "clear_due_date", nil, &domain.FlowContext{Card: got})
	require.True(t, res.Success)
	got, err = env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)

	// clearing an absent due date is a no-op success
	res = env.execute(t, "clear_due_date", nil, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestTags(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "tagged", Tags: []string{"Bug"}})

	// case-insensitive duplicate is a no-op
	res := env.execute(t, "add_tag", map[string]any{"tag": "bug"}, &domain.FlowContext{Card: card})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)

	res = env.execute(t, "add_tag", map[string]any{"tag": "urgent"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tags, 2)

	// remove matches case-insensitively against the stored tag
	res = env.execute(t, "remove_tag", map[string]any{"tag": "BUG"}, &domain.FlowContext{Card: got})
	require.True(t, res.Success, res.Error)
	got, err = env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"urgent"}, got.Tags)

	res = env.execute(t, "remove_tag", map[string]any{"tag": "gone"}, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestSetTitlePrefix(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "fix login"})

	res := env.execute(t, "set_title_prefix", map[string]any{"prefix": "[URGENT]"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "[URGENT] fix login", res.Output["title"])

	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "[URGENT] fix login", got.Title)

	// prefix already present: no double stamping
	res = env.execute(t, "set_title_prefix", map[string]any{"prefix": "[URGENT]"}, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestUpdateDescription(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "doc", Description: "first"})

	res := env.execute(t, "update_description", map[string]any{"description": "second", "mode": "append"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond", got.Description)

	res = env.execute(t, "update_description", map[string]any{"description": "fresh"}, &domain.FlowContext{Card: got})
	require.True(t, res.Success, res.Error)
	got, err = env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Description)

	res = env.execute(t, "update_description", map[string]any{"description": "x", "mode": "prepend"}, &domain.FlowContext{Card: got})
	assert.False(t, res.Success)
	assert.Equal(t, action.CodeInvalidConfig, res.ErrorCode)
}

func TestArchiveCard(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "old"})

	res := env.execute(t, "archive_card", nil, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	got, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	res = env.execute(t, "archive_card", nil, &domain.FlowContext{Card: got})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestCopyCard(t *testing.T) {
	env := newTestEnv(t)
	user := env.insertUser(t, "u1", "Ada", "ada@example.com")
	card := env.insertCard(t, domain.CardData{
		ID:           "c1",
		Title:        "template",
		Tags:         []string{"recurring"},
		CustomFields: map[string]string{"team": "infra"},
		Assignees:    []domain.CardUser{{ID: user.ID}},
	})

	res := env.execute(t, "copy_card", map[string]any{"targetColumnId": "done"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	newID, _ := res.Output["card_id"].(string)
	require.NotEmpty(t, newID)
	assert.NotEqual(t, card.ID, newID)

	copied, err := env.Repo.GetCardData(env.Ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, "template", copied.Title)
	assert.Equal(t, "done", copied.Status)
	assert.Equal(t, []string{"recurring"}, copied.Tags)
	assert.Equal(t, "infra", copied.CustomFields["team"])
	assert.Empty(t, copied.Assignees)
}

func TestSubtaskActions(t *testing.T) {
	env := newTestEnv(t)
	user := env.insertUser(t, "u1", "Ada", "ada@example.com")
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "parent"})

	res := env.execute(t, "create_subtask", map[string]any{"title": "write tests"}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)

	res = env.execute(t, "create_subtasks", map[string]any{"titles": []any{"review", "deploy"}}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.EqualValues(t, 2, res.Output["created"])

	subs, err := env.Repo.ListSubtasks(env.Ctx, card.ID)
	require.NoError(t, err)
	require.Len(t, subs, 3)

	res = env.execute(t, "assign_all_subtasks", map[string]any{"userId": user.ID}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	subs, err = env.Repo.ListSubtasks(env.Ctx, card.ID)
	require.NoError(t, err)
	for _, s := range subs {
		require.NotNil(t, s.AssigneeID)
		assert.Equal(t, user.ID, *s.AssigneeID)
	}

	res = env.execute(t, "complete_all_subtasks", nil, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	subs, err = env.Repo.ListSubtasks(env.Ctx, card.ID)
	require.NoError(t, err)
	for _, s := range subs {
		assert.True(t, s.Done)
	}

	// nothing left open: no-op success
	res = env.execute(t, "complete_all_subtasks", nil, &domain.FlowContext{Card: card})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	ada := env.insertUser(t, "u1", "Ada", "ada@example.com")
	bob := env.insertUser(t, "u2", "Bob", "bob@example.com")
	card := env.insertCard(t, domain.CardData{
		ID:        "c1",
		Title:     "notify me",
		Assignees: []domain.CardUser{{ID: ada.ID}},
		CreatedBy: &domain.CardUser{ID: bob.ID},
	})
	fresh, err := env.Repo.GetCardData(env.Ctx, card.ID)
	require.NoError(t, err)

	res := env.execute(t, "notify_card_assignee", map[string]any{"message": "heads up"}, &domain.FlowContext{Card: fresh})
	require.True(t, res.Success, res.Error)
	notes, err := env.Repo.ListNotifications(env.Ctx, ada.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "heads up", notes[0].Message)

	res = env.execute(t, "notify_card_creator", map[string]any{"message": "your card moved"}, &domain.FlowContext{Card: fresh})
	require.True(t, res.Success, res.Error)
	notes, err = env.Repo.ListNotifications(env.Ctx, bob.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	res = env.execute(t, "notify_users", map[string]any{"userIds": []any{ada.ID, bob.ID}, "message": "all hands"}, &domain.FlowContext{Card: fresh})
	require.True(t, res.Success, res.Error)
	notes, err = env.Repo.ListNotifications(env.Ctx, ada.ID, 10)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestSendEmail(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "mail"})

	res := env.execute(t, "send_email", map[string]any{
		"to":      "ada@example.com",
		"subject": "card update",
		"body":    "it moved",
	}, &domain.FlowContext{Card: card})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ada@example.com", res.Output["recipient"])

	emails, err := env.Repo.PendingEmails(env.Ctx, 10)
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "card update", emails[0].Subject)

	// empty recipient: graceful skip
	res = env.execute(t, "send_email", map[string]any{"to": "", "subject": "s"}, &domain.FlowContext{Card: card})
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.Details)

	// unresolved template variable is not a mail address
	res = env.execute(t, "send_email", map[string]any{"to": "{{card.assignee.email}}", "subject": "s"}, &domain.FlowContext{Card: card})
	assert.False(t, res.Success)
	assert.Equal(t, action.CodeExecutionFailed, res.ErrorCode)
}

func TestStubActionsFail(t *testing.T) {
	env := newTestEnv(t)
	card := env.insertCard(t, domain.CardData{ID: "c1", Title: "deal"})

	tests := []struct {
		actionType string
		code       string
	}{
		{"generate_contract", action.CodeContractNotImplemented},
		{"send_contract", action.CodeContractNotImplemented},
		{"create_invoice", action.CodeInvoiceNotImplemented},
		{"send_invoice", action.CodeInvoiceNotImplemented},
		{"ai_summarize_card", action.CodeAINotImplemented},
		{"ai_draft_reply", action.CodeAINotImplemented},
	}
	for _, tt := range tests {
		t.Run(tt.actionType, func(t *testing.T) {
			res := env.execute(t, tt.actionType, nil, &domain.FlowContext{Card: card})
			assert.False(t, res.Success)
			assert.Equal(t, tt.code, res.ErrorCode)
		})
	}
}

func TestRegistryContents(t *testing.T) {
	env := newTestEnv(t)

	types := env.Registry.Types()
	assert.Len(t, types, 30)
	_, ok := env.Registry.Get("explode_card")
	assert.False(t, ok)

	for _, h := range env.Registry.All() {
		assert.NotEmpty(t, h.Summarize(nil, nil), "summary for %s", h.Type())
		assert.NotEmpty(t, action.CategoryOf(h.Type()), "category for %s", h.Type())
	}

	subtasks := env.Registry.ByCategory(action.CategorySubtask)
	require.Len(t, subtasks, 4)
	for _, h := range subtasks {
		assert.Equal(t, action.CategorySubtask, action.CategoryOf(h.Type()))
	}
}
